package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"judge_gate/internal/app/service"
	"judge_gate/internal/common"
	"judge_gate/internal/common/security"
	"judge_gate/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRuns struct {
	createErr error
	detailErr error

	gotRequestor model.Requestor
	gotRequest   service.CreateRunRequest
	gotIP        string
	gotAlias     string
}

func (s *stubRuns) CreateRun(_ context.Context, requestor model.Requestor, req service.CreateRunRequest, ip string) (*service.CreateRunResponse, error) {
	s.gotRequestor, s.gotRequest, s.gotIP = requestor, req, ip
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &service.CreateRunResponse{GUID: "0123456789abcdef0123456789abcdef", Status: "ok", SubmissionDeadline: 1778418000}, nil
}

func (s *stubRuns) GetDetails(_ context.Context, requestor model.Requestor, runAlias string) (*service.RunView, error) {
	s.gotRequestor, s.gotAlias = requestor, runAlias
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	return &service.RunView{GUID: runAlias, Language: model.LangC, Status: model.StatusQueued, Verdict: model.VerdictPending, Source: "int main(){}"}, nil
}

func newTestServer(t *testing.T) (http.Handler, *stubRuns, string) {
	t.Helper()
	security.InitJWT([]byte("router-test-secret"))
	token, err := security.GenerateToken(42, model.RoleUser, time.Hour)
	require.NoError(t, err)
	stub := &stubRuns{}
	return NewRouter(stub, stub), stub, token
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := do(h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCreateRunRequiresToken(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := do(h, http.MethodPost, "/api/v1/runs", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)

	rec = do(h, http.MethodPost, "/api/v1/runs", "not-a-jwt", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateRun(t *testing.T) {
	h, stub, token := newTestServer(t)

	rec := do(h, http.MethodPost, "/api/v1/runs", token,
		`{"problem_alias":"sumas","contest_alias":"finals","language":"cpp","source":"int main(){}"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"guid":"0123456789abcdef0123456789abcdef","status":"ok","submission_deadline":1778418000}`, rec.Body.String())

	assert.Equal(t, model.Requestor{UserID: 42, Role: model.RoleUser}, stub.gotRequestor)
	assert.Equal(t, service.CreateRunRequest{ProblemAlias: "sumas", ContestAlias: "finals", Language: "cpp", Source: "int main(){}"}, stub.gotRequest)
	assert.Equal(t, "203.0.113.9", stub.gotIP)
}

func TestCreateRunErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"malformed json", `{"problem_alias":`, nil, http.StatusBadRequest, `"code":"validation_error"`},
		{"forbidden", `{}`, common.Errorf("contest is private: %w", common.ErrForbidden), http.StatusForbidden, `"code":"forbidden"`},
		{"rate limited", `{}`, &common.RateLimitError{Wait: time.Minute}, http.StatusTooManyRequests, `wait 60 seconds`},
		{"dispatch failure", `{}`, common.Errorf("%w: dial tcp 10.0.0.3:5672: refused", common.ErrDispatch), http.StatusInternalServerError, `"error":"grading dispatch failed"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, stub, token := newTestServer(t)
			stub.createErr = tt.err

			rec := do(h, http.MethodPost, "/api/v1/runs", token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "10.0.0.3")
		})
	}
}

func TestRateLimitedSetsRetryAfter(t *testing.T) {
	h, stub, token := newTestServer(t)
	stub.createErr = &common.RateLimitError{Wait: 90 * time.Second}

	rec := do(h, http.MethodPost, "/api/v1/runs", token, `{}`)
	assert.Equal(t, "90", rec.Header().Get("Retry-After"))
}

func TestGetRun(t *testing.T) {
	h, stub, token := newTestServer(t)

	rec := do(h, http.MethodGet, "/api/v1/runs/abc123", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", stub.gotAlias)
	assert.Contains(t, rec.Body.String(), `"source":"int main(){}"`)
	assert.Contains(t, rec.Body.String(), `"verdict":"pending"`)

	stub.detailErr = common.ErrNotFound
	rec = do(h, http.MethodGet, "/api/v1/runs/missing", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := do(h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
