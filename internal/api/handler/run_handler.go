package handler

import (
	"context"
	"net"
	"net/http"

	"judge_gate/internal/api/middleware"
	"judge_gate/internal/app/service"
	"judge_gate/internal/common"
	"judge_gate/internal/domain/model"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request bodies above this are rejected before decoding.
const maxRequestBytes = 1 << 20

type RunSubmitter interface {
	CreateRun(ctx context.Context, requestor model.Requestor, req service.CreateRunRequest, ip string) (*service.CreateRunResponse, error)
}

type RunReader interface {
	GetDetails(ctx context.Context, requestor model.Requestor, runAlias string) (*service.RunView, error)
}

type RunHandler struct {
	submitter RunSubmitter
	reader    RunReader
}

func NewRunHandler(submitter RunSubmitter, reader RunReader) *RunHandler {
	return &RunHandler{submitter: submitter, reader: reader}
}

func (h *RunHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.createRun)
	r.Get("/{runAlias}", h.getRun)
}

func (h *RunHandler) createRun(w http.ResponseWriter, r *http.Request) {
	requestor, ok := middleware.GetRequestorFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateRunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	resp, err := h.submitter.CreateRun(r.Context(), requestor, req, clientIP(r))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *RunHandler) getRun(w http.ResponseWriter, r *http.Request) {
	requestor, ok := middleware.GetRequestorFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	view, err := h.reader.GetDetails(r.Context(), requestor, chi.URLParam(r, "runAlias"))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware
// has already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
