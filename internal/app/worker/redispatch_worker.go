package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"judge_gate/internal/domain/repository"
	"judge_gate/internal/platform/config"
	"judge_gate/internal/platform/lock"
	"judge_gate/internal/platform/metrics"
	"judge_gate/internal/platform/queue"
)

// RedispatchWorker re-enqueues runs that stayed queued, e.g. because the
// pipeline was down when they were submitted. Only the instance holding the
// lock works on a tick.
type RedispatchWorker struct {
	runRepo  repository.RunRepository
	pipeline queue.Pipeline
	locker   lock.Reserver
	lockKey  string
	lockTTL  time.Duration
	interval time.Duration
	after    time.Duration
	batch    int
	now      func() time.Time
}

func NewRedispatchWorker(runRepo repository.RunRepository, pipeline queue.Pipeline, locker lock.Reserver, cfg *config.Config) *RedispatchWorker {
	return &RedispatchWorker{
		runRepo:  runRepo,
		pipeline: pipeline,
		locker:   locker,
		lockKey:  cfg.RedispatchLockKey,
		lockTTL:  time.Duration(cfg.RedispatchLockTTLSeconds) * time.Second,
		interval: time.Duration(cfg.RedispatchIntervalSeconds) * time.Second,
		after:    time.Duration(cfg.RedispatchAfterSeconds) * time.Second,
		batch:    cfg.RedispatchBatchSize,
		now:      time.Now,
	}
}

func (w *RedispatchWorker) Start(ctx context.Context) {
	slog.Info("Redispatch worker started", "interval", w.interval, "after", w.after)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Redispatch worker stopping")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				slog.Error("redispatch pass failed", "error", err)
			}
		}
	}
}

// RunOnce re-enqueues one batch of stale queued runs and returns how many
// were handed to the pipeline.
func (w *RedispatchWorker) RunOnce(ctx context.Context) (int, error) {
	token, ok, err := w.locker.Reserve(ctx, w.lockKey, w.lockTTL)
	if err != nil {
		return 0, fmt.Errorf("acquire redispatch lock: %w", err)
	}
	if !ok {
		slog.Debug("redispatch lock held by another instance")
		return 0, nil
	}
	defer func() {
		if err := w.locker.Release(context.WithoutCancel(ctx), w.lockKey, token); err != nil {
			slog.Warn("failed to release redispatch lock", "error", err)
		}
	}()

	runs, err := w.runRepo.ListQueuedRuns(ctx, w.now().Add(-w.after), w.batch)
	if err != nil {
		return 0, fmt.Errorf("list queued runs: %w", err)
	}

	sent := 0
	for i := range runs {
		run := &runs[i]
		if err := w.pipeline.Enqueue(ctx, run); err != nil {
			slog.Warn("failed to re-enqueue run", "run_id", run.ID, "guid", run.GUID, "error", err)
			continue
		}
		sent++
	}
	if sent > 0 {
		metrics.RecordRedispatch(sent)
		slog.Info("re-enqueued stale runs", "count", sent, "found", len(runs))
	}
	return sent, nil
}
