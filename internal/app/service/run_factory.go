package service

import (
	"encoding/hex"

	"judge_gate/internal/domain/model"

	"github.com/google/uuid"
)

type RunRecordFactory struct {
	newGUID func() string
}

func NewRunRecordFactory() *RunRecordFactory {
	return &RunRecordFactory{newGUID: newGUID}
}

// newGUID returns 32 lowercase hex characters from a random (v4) UUID.
func newGUID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Build creates the initial run record. Nothing is persisted.
func (f *RunRecordFactory) Build(requestorID int64, problem *model.Problem, decision *AdmissionDecision, language model.Language, source, ip string) *model.Run {
	return &model.Run{
		GUID:        f.newGUID(),
		UserID:      requestorID,
		ProblemID:   problem.ID,
		ContestID:   decision.ContestID,
		Language:    language,
		Source:      source,
		Status:      model.StatusQueued,
		Verdict:     model.VerdictPending,
		IP:          ip,
		SubmitDelay: decision.SubmitDelay,
		Test:        decision.IsTest,
		Time:        decision.AdmittedAt,
	}
}
