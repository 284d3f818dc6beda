package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"judge_gate/internal/common"
	"judge_gate/internal/domain/model"
	"judge_gate/internal/domain/repository"
)

type PenaltyCalculator struct {
	contestRepo repository.ContestRepository
}

func NewPenaltyCalculator(contestRepo repository.ContestRepository) *PenaltyCalculator {
	return &PenaltyCalculator{contestRepo: contestRepo}
}

// ComputeDelay returns the submit delay in whole minutes for a run made at
// now, according to the contest's penalty policy.
func (p *PenaltyCalculator) ComputeDelay(ctx context.Context, contest *model.Contest, problemID, userID int64, now time.Time) (int, error) {
	var reference time.Time
	switch contest.PenaltyTimeStart {
	case model.PenaltyFromNone:
		return 0, nil
	case model.PenaltyFromContest:
		reference = contest.StartTime
	case model.PenaltyFromProblem:
		opened, err := p.contestRepo.GetProblemOpenTimestamp(ctx, contest.ID, problemID, userID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				slog.Error("run submitted without a problem open event under problem penalty policy",
					"contest_id", contest.ID, "problem_id", problemID, "user_id", userID)
				return 0, fmt.Errorf("no open event for user %d on problem %d in contest %d: %w",
					userID, problemID, contest.ID, common.ErrInternalInconsistency)
			}
			return 0, fmt.Errorf("failed to load problem open time: %w", err)
		}
		reference = opened
	default:
		return 0, fmt.Errorf("unhandled penalty policy %d: %w", contest.PenaltyTimeStart, common.ErrInternalInconsistency)
	}
	return delayMinutes(now, reference), nil
}

func delayMinutes(now, reference time.Time) int {
	minutes := int(now.Sub(reference) / time.Minute)
	if minutes < 0 {
		return 0
	}
	return minutes
}
