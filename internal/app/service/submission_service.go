package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"judge_gate/internal/common"
	"judge_gate/internal/domain/model"
	"judge_gate/internal/platform/metrics"

	"github.com/gosimple/slug"
)

type CreateRunRequest struct {
	ProblemAlias string `json:"problem_alias"`
	ContestAlias string `json:"contest_alias"`
	Language     string `json:"language"`
	Source       string `json:"source"`
}

type CreateRunResponse struct {
	GUID               string `json:"guid"`
	Status             string `json:"status"`
	SubmissionDeadline int64  `json:"submission_deadline"`
}

// SubmissionService runs one submission through admission, record creation
// and dispatch. All state lives in the call.
type SubmissionService struct {
	admission      *AdmissionController
	factory        *RunRecordFactory
	dispatcher     *GradingDispatcher
	maxSourceBytes int
}

func NewSubmissionService(
	admission *AdmissionController,
	factory *RunRecordFactory,
	dispatcher *GradingDispatcher,
	maxSourceBytes int,
) *SubmissionService {
	return &SubmissionService{
		admission:      admission,
		factory:        factory,
		dispatcher:     dispatcher,
		maxSourceBytes: maxSourceBytes,
	}
}

// maxAliasLength matches the alias columns of the problems and contests
// tables.
const maxAliasLength = 32

// validAlias accepts the same aliases the schema CHECK constraint does.
func validAlias(alias string) bool {
	return len(alias) <= maxAliasLength && slug.IsSlug(alias)
}

func (s *SubmissionService) validate(req CreateRunRequest) error {
	if req.ProblemAlias == "" {
		return common.Errorf("problem_alias is required: %w", common.ErrValidation)
	}
	if !validAlias(req.ProblemAlias) {
		return common.Errorf("problem_alias %q is malformed: %w", req.ProblemAlias, common.ErrValidation)
	}
	if req.ContestAlias != "" && !validAlias(req.ContestAlias) {
		return common.Errorf("contest_alias %q is malformed: %w", req.ContestAlias, common.ErrValidation)
	}
	if req.Source == "" {
		return common.Errorf("source is required: %w", common.ErrValidation)
	}
	if s.maxSourceBytes > 0 && len(req.Source) > s.maxSourceBytes {
		return common.Errorf("source exceeds %d bytes: %w", s.maxSourceBytes, common.ErrValidation)
	}
	if !utf8.ValidString(req.Source) {
		return common.Errorf("source is not valid UTF-8: %w", common.ErrValidation)
	}
	if strings.ContainsRune(req.Source, 0) {
		return common.Errorf("source contains a NUL byte: %w", common.ErrValidation)
	}
	return nil
}

func (s *SubmissionService) CreateRun(ctx context.Context, requestor model.Requestor, req CreateRunRequest, ip string) (*CreateRunResponse, error) {
	started := time.Now()
	mode := metrics.ModeContest
	if req.ContestAlias == "" {
		mode = metrics.ModePractice
	}

	if err := s.validate(req); err != nil {
		metrics.RecordAdmission(mode, common.ErrorCodeFromError(err))
		return nil, err
	}

	decision, err := s.admission.Admit(ctx, requestor, req.ProblemAlias, req.ContestAlias, req.Language)
	if err != nil {
		metrics.RecordAdmission(mode, common.ErrorCodeFromError(err))
		if errors.Is(err, common.ErrInternalInconsistency) {
			slog.Error("admission failed on inconsistent data", "user_id", requestor.UserID,
				"problem", req.ProblemAlias, "contest", req.ContestAlias, "error", err)
		}
		return nil, err
	}
	metrics.RecordAdmission(mode, metrics.ResultAdmitted)

	run := s.factory.Build(requestor.UserID, decision.Problem, decision, model.Language(req.Language), req.Source, ip)
	result, err := s.dispatcher.Dispatch(ctx, run, decision, []byte(req.Source))
	if err != nil {
		if run.ID == 0 {
			decision.Release(ctx)
		}
		return nil, fmt.Errorf("unable to submit run: %w", err)
	}

	metrics.RecordSubmissionLatency(mode, time.Since(started))
	slog.Info("run submitted", "guid", result.GUID, "run_id", run.ID, "user_id", requestor.UserID,
		"problem", req.ProblemAlias, "contest", req.ContestAlias, "language", req.Language,
		"submit_delay", run.SubmitDelay, "test", run.Test)

	return &CreateRunResponse{
		GUID:               result.GUID,
		Status:             "ok",
		SubmissionDeadline: result.SubmissionDeadline,
	}, nil
}
