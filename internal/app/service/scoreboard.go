package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"judge_gate/internal/platform/cache"
	"judge_gate/internal/platform/metrics"

	"golang.org/x/sync/errgroup"
)

const (
	ContestantScoreboardPrefix = "scoreboard:contestant:"
	AdminScoreboardPrefix      = "scoreboard:admin:"
)

type ScoreboardCacheInvalidator struct {
	cache   cache.Cache
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewScoreboardCacheInvalidator(c cache.Cache, timeout time.Duration) *ScoreboardCacheInvalidator {
	return &ScoreboardCacheInvalidator{cache: c, timeout: timeout}
}

// Invalidate drops both scoreboard snapshots of the contest. Absent entries
// are not an error.
func (s *ScoreboardCacheInvalidator) Invalidate(ctx context.Context, contestID int64) error {
	key := strconv.FormatInt(contestID, 10)
	g, ctx := errgroup.WithContext(ctx)
	for _, prefix := range []string{ContestantScoreboardPrefix, AdminScoreboardPrefix} {
		g.Go(func() error {
			return s.cache.Delete(ctx, prefix, key)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("invalidate scoreboard of contest %d: %w", contestID, err)
	}
	return nil
}

// InvalidateAsync runs Invalidate in the background. Failures are logged and
// counted, never returned.
func (s *ScoreboardCacheInvalidator) InvalidateAsync(contestID int64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.Invalidate(ctx, contestID); err != nil {
			metrics.RecordScoreboardInvalidationError()
			slog.Warn("scoreboard cache invalidation failed", "contest_id", contestID, "error", err)
		}
	}()
}

// Wait blocks until pending background invalidations finish.
func (s *ScoreboardCacheInvalidator) Wait() {
	s.wg.Wait()
}
