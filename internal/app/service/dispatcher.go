package service

import (
	"context"
	"fmt"
	"log/slog"

	"judge_gate/internal/common"
	"judge_gate/internal/domain/model"
	"judge_gate/internal/domain/repository"
	"judge_gate/internal/platform/blobstore"
	"judge_gate/internal/platform/metrics"
	"judge_gate/internal/platform/queue"
)

type DispatchResult struct {
	GUID               string
	SubmissionDeadline int64 // unix seconds, 0 for practice runs
}

type GradingDispatcher struct {
	runRepo     repository.RunRepository
	blobs       blobstore.Store
	pipeline    queue.Pipeline
	invalidator *ScoreboardCacheInvalidator
}

func NewGradingDispatcher(
	runRepo repository.RunRepository,
	blobs blobstore.Store,
	pipeline queue.Pipeline,
	invalidator *ScoreboardCacheInvalidator,
) *GradingDispatcher {
	return &GradingDispatcher{
		runRepo:     runRepo,
		blobs:       blobs,
		pipeline:    pipeline,
		invalidator: invalidator,
	}
}

// Dispatch persists run, stores its source and hands it to the grading
// pipeline, in that order. Once the row is saved it is never rolled back: a
// later failure leaves the run queued for the redispatch worker.
func (d *GradingDispatcher) Dispatch(ctx context.Context, run *model.Run, decision *AdmissionDecision, source []byte) (*DispatchResult, error) {
	if err := d.runRepo.SaveRun(ctx, run); err != nil {
		metrics.RecordDispatchError("persist")
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	if err := d.blobs.Write(ctx, run.GUID, source); err != nil {
		metrics.RecordDispatchError("store")
		return nil, fmt.Errorf("failed to store source of run %s: %w", run.GUID, err)
	}

	if err := d.pipeline.Enqueue(ctx, run); err != nil {
		metrics.RecordDispatchError("enqueue")
		slog.Error("run left queued after enqueue failure", "run_id", run.ID, "guid", run.GUID, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDispatch, err)
	}

	result := &DispatchResult{GUID: run.GUID}
	if !decision.IsPractice {
		result.SubmissionDeadline = decision.Contest.EffectiveEnd(decision.ContestUser).Unix()
		d.invalidator.InvalidateAsync(decision.Contest.ID)
	}
	return result, nil
}
