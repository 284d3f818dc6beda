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
	"judge_gate/internal/platform/lock"
)

// AdmissionDecision is the request-scoped outcome of a successful Admit.
type AdmissionDecision struct {
	IsPractice  bool
	ContestID   *int64
	IsTest      bool
	SubmitDelay int

	Problem     *model.Problem
	Contest     *model.Contest     // nil for practice
	ContestUser *model.ContestUser // nil for practice and for admins that never opened the contest

	// AdmittedAt is the instant every check ran against. It becomes the run
	// time so later gap checks compare like with like.
	AdmittedAt time.Time

	slot *gapSlot
}

// Release gives back the submission gap slot taken during admission. Call it
// when the run is abandoned before it is persisted. Safe on a nil decision
// and safe to call more than once.
func (d *AdmissionDecision) Release(ctx context.Context) {
	if d == nil || d.slot == nil {
		return
	}
	slot := d.slot
	d.slot = nil
	if err := slot.reserver.Release(ctx, slot.key, slot.token); err != nil {
		slog.Warn("failed to release submission gap slot", "key", slot.key, "error", err)
	}
}

type gapSlot struct {
	reserver lock.Reserver
	key      string
	token    string
}

func gapKey(userID int64, contestID *int64, problemID int64) string {
	if contestID == nil {
		return fmt.Sprintf("gap:%d:practice:%d", userID, problemID)
	}
	return fmt.Sprintf("gap:%d:%d:%d", userID, *contestID, problemID)
}

type AdmissionController struct {
	problemRepo repository.ProblemRepository
	contestRepo repository.ContestRepository
	runRepo     repository.RunRepository
	authz       *Authorizer
	penalty     *PenaltyCalculator
	reserver    lock.Reserver
	practiceGap time.Duration
	now         func() time.Time
}

func NewAdmissionController(
	problemRepo repository.ProblemRepository,
	contestRepo repository.ContestRepository,
	runRepo repository.RunRepository,
	authz *Authorizer,
	penalty *PenaltyCalculator,
	reserver lock.Reserver,
	practiceGap time.Duration,
) *AdmissionController {
	return &AdmissionController{
		problemRepo: problemRepo,
		contestRepo: contestRepo,
		runRepo:     runRepo,
		authz:       authz,
		penalty:     penalty,
		reserver:    reserver,
		practiceGap: practiceGap,
		now:         time.Now,
	}
}

// Admit decides whether requestor may submit a run for problemAlias in
// contestAlias (empty for practice). Every check is evaluated against the
// repositories on each call.
func (c *AdmissionController) Admit(ctx context.Context, requestor model.Requestor, problemAlias, contestAlias, language string) (*AdmissionDecision, error) {
	now := c.now()

	problem, err := c.problemRepo.GetProblemByAlias(ctx, problemAlias)
	if err != nil {
		return nil, fmt.Errorf("problem %q: %w", problemAlias, err)
	}
	if !model.IsSupportedLanguage(language) {
		return nil, fmt.Errorf("language %q is not supported: %w", language, common.ErrValidation)
	}

	if contestAlias == "" {
		return c.admitPractice(ctx, requestor, problem, now)
	}
	return c.admitContest(ctx, requestor, problem, contestAlias, now)
}

func (c *AdmissionController) admitPractice(ctx context.Context, requestor model.Requestor, problem *model.Problem, now time.Time) (*AdmissionDecision, error) {
	decision := &AdmissionDecision{IsPractice: true, Problem: problem, AdmittedAt: now}
	if requestor.IsSystemAdmin() {
		return decision, nil
	}

	deadline, err := c.problemRepo.GetPracticeDeadline(ctx, problem.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load practice deadline: %w", err)
	}
	if !now.After(deadline) {
		return nil, fmt.Errorf("practice for problem %q opens after its contests end: %w", problem.Alias, common.ErrForbidden)
	}

	slot, err := c.checkGap(ctx, requestor.UserID, nil, problem.ID, c.practiceGap, now)
	if err != nil {
		return nil, err
	}
	decision.slot = slot
	return decision, nil
}

func (c *AdmissionController) admitContest(ctx context.Context, requestor model.Requestor, problem *model.Problem, contestAlias string, now time.Time) (*AdmissionDecision, error) {
	contest, err := c.contestRepo.GetContestByAlias(ctx, contestAlias)
	if err != nil {
		return nil, fmt.Errorf("contest %q: %w", contestAlias, err)
	}
	if _, err := c.contestRepo.GetContestProblemLink(ctx, contest.ID, problem.ID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("problem_alias and contest_alias combination is invalid: %w", common.ErrValidation)
		}
		return nil, fmt.Errorf("failed to load contest problem: %w", err)
	}

	isAdmin, err := c.authz.IsContestAdmin(ctx, requestor, contest.ID)
	if err != nil {
		return nil, err
	}

	contestUser, err := c.contestRepo.GetContestUser(ctx, requestor.UserID, contest.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load contest user: %w", err)
	}

	decision := &AdmissionDecision{
		ContestID:   &contest.ID,
		IsTest:      isAdmin,
		Problem:     problem,
		Contest:     contest,
		ContestUser: contestUser,
		AdmittedAt:  now,
	}

	if !isAdmin {
		if contestUser == nil {
			return nil, fmt.Errorf("you must open the problem before trying to submit a solution: %w", common.ErrForbidden)
		}
		if !contest.IsInsideContest(contestUser, now) {
			return nil, fmt.Errorf("contest %q is not active for this user: %w", contest.Alias, common.ErrForbidden)
		}
		if !contest.Public && contestUser == nil {
			return nil, fmt.Errorf("contest %q is private: %w", contest.Alias, common.ErrForbidden)
		}
		decision.slot, err = c.checkGap(ctx, requestor.UserID, &contest.ID, problem.ID, contest.SubmissionsGap(), now)
		if err != nil {
			return nil, err
		}
	}

	decision.SubmitDelay, err = c.penalty.ComputeDelay(ctx, contest, problem.ID, requestor.UserID, now)
	if err != nil {
		decision.Release(ctx)
		return nil, err
	}
	return decision, nil
}

// checkGap admits a run only if the last stored run is more than gap old and
// no concurrent request holds the slot. The slot is held for gap, so it also
// covers the time until the new run row becomes visible.
func (c *AdmissionController) checkGap(ctx context.Context, userID int64, contestID *int64, problemID int64, gap time.Duration, now time.Time) (*gapSlot, error) {
	if gap <= 0 {
		return nil, nil
	}

	last, ok, err := c.runRepo.GetRecentRunTimestamp(ctx, contestID, problemID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load last run time: %w", err)
	}
	if ok && !now.After(last.Add(gap)) {
		return nil, &common.RateLimitError{Wait: gap}
	}

	key := gapKey(userID, contestID, problemID)
	token, ok, err := c.reserver.Reserve(ctx, key, gap)
	if err != nil {
		return nil, fmt.Errorf("%w: reserve submission slot: %w", common.ErrPersistence, err)
	}
	if !ok {
		return nil, &common.RateLimitError{Wait: gap}
	}
	return &gapSlot{reserver: c.reserver, key: key, token: token}, nil
}
