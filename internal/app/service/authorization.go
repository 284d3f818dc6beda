package service

import (
	"context"
	"fmt"

	"judge_gate/internal/domain/model"
	"judge_gate/internal/domain/repository"
)

// Authorizer answers role questions for a single requestor. Results are
// never cached across requests.
type Authorizer struct {
	problemRepo repository.ProblemRepository
	contestRepo repository.ContestRepository
}

func NewAuthorizer(problemRepo repository.ProblemRepository, contestRepo repository.ContestRepository) *Authorizer {
	return &Authorizer{problemRepo: problemRepo, contestRepo: contestRepo}
}

// IsContestAdmin is true for system admins, the contest director and the
// contest's listed admins.
func (a *Authorizer) IsContestAdmin(ctx context.Context, requestor model.Requestor, contestID int64) (bool, error) {
	if requestor.IsSystemAdmin() {
		return true, nil
	}
	ok, err := a.contestRepo.IsContestAdmin(ctx, contestID, requestor.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to check contest admin: %w", err)
	}
	return ok, nil
}

// CanViewRun allows the run owner, system admins, the problem author and
// admins of the run's contest.
func (a *Authorizer) CanViewRun(ctx context.Context, requestor model.Requestor, run *model.Run) (bool, error) {
	if run.UserID == requestor.UserID || requestor.IsSystemAdmin() {
		return true, nil
	}

	problem, err := a.problemRepo.GetProblemByID(ctx, run.ProblemID)
	if err != nil {
		return false, fmt.Errorf("failed to load problem %d: %w", run.ProblemID, err)
	}
	if problem.AuthorID != nil && *problem.AuthorID == requestor.UserID {
		return true, nil
	}

	if run.ContestID != nil {
		return a.IsContestAdmin(ctx, requestor, *run.ContestID)
	}
	return false, nil
}
