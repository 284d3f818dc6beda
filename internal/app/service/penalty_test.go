package service

import (
	"context"
	"testing"
	"time"

	"judge_gate/internal/common"
	"judge_gate/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDelay(t *testing.T) {
	opened := contestStart.Add(10 * time.Minute)
	repo := &fakeContestRepo{opened: map[[3]int64]time.Time{{4, 3, userAlice}: opened}}
	calc := NewPenaltyCalculator(repo)

	tests := []struct {
		name   string
		policy model.PenaltyTimeStart
		now    time.Time
		want   int
	}{
		{"none ignores timing", model.PenaltyFromNone, contestStart.Add(3 * time.Hour), 0},
		{"contest counts from start", model.PenaltyFromContest, contestStart.Add(125 * time.Second), 2},
		{"contest truncates partial minutes", model.PenaltyFromContest, contestStart.Add(59 * time.Second), 0},
		{"contest clamps before start", model.PenaltyFromContest, contestStart.Add(-5 * time.Minute), 0},
		{"problem counts from open event", model.PenaltyFromProblem, opened.Add(60*time.Minute + 30*time.Second), 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contest := &model.Contest{ID: 4, StartTime: contestStart, FinishTime: contestEnd, PenaltyTimeStart: tt.policy}
			got, err := calc.ComputeDelay(context.Background(), contest, 3, userAlice, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeDelayMissingOpenEventIsFatal(t *testing.T) {
	calc := NewPenaltyCalculator(&fakeContestRepo{opened: map[[3]int64]time.Time{}})
	contest := &model.Contest{ID: 4, StartTime: contestStart, PenaltyTimeStart: model.PenaltyFromProblem}

	delay, err := calc.ComputeDelay(context.Background(), contest, 3, userBob, contestStart.Add(time.Hour))
	assert.ErrorIs(t, err, common.ErrInternalInconsistency)
	assert.NotErrorIs(t, err, common.ErrNotFound)
	assert.Zero(t, delay)
}
