package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"judge_gate/internal/common"
	"judge_gate/internal/domain/model"
	"judge_gate/internal/platform/lock"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeProblemRepo struct {
	byAlias   map[string]*model.Problem
	deadlines map[int64]time.Time
}

func (f *fakeProblemRepo) GetProblemByAlias(_ context.Context, alias string) (*model.Problem, error) {
	if p, ok := f.byAlias[alias]; ok {
		return p, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeProblemRepo) GetProblemByID(_ context.Context, id int64) (*model.Problem, error) {
	for _, p := range f.byAlias {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeProblemRepo) GetPracticeDeadline(_ context.Context, problemID int64) (time.Time, error) {
	return f.deadlines[problemID], nil
}

type pair [2]int64

type fakeContestRepo struct {
	mu      sync.Mutex
	byAlias map[string]*model.Contest
	links   map[pair]bool
	users   map[pair]*model.ContestUser // (user, contest)
	admins  map[pair]bool               // (contest, user)
	opened  map[[3]int64]time.Time      // (contest, problem, user)
}

func (f *fakeContestRepo) GetContestByAlias(_ context.Context, alias string) (*model.Contest, error) {
	if c, ok := f.byAlias[alias]; ok {
		return c, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeContestRepo) GetContestProblemLink(_ context.Context, contestID, problemID int64) (*model.ContestProblem, error) {
	if !f.links[pair{contestID, problemID}] {
		return nil, common.ErrNotFound
	}
	return &model.ContestProblem{ContestID: contestID, ProblemID: problemID, Points: 100}, nil
}

func (f *fakeContestRepo) GetContestUser(_ context.Context, userID, contestID int64) (*model.ContestUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cu, ok := f.users[pair{userID, contestID}]; ok {
		return cu, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeContestRepo) GetProblemOpenTimestamp(_ context.Context, contestID, problemID, userID int64) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ts, ok := f.opened[[3]int64{contestID, problemID, userID}]; ok {
		return ts, nil
	}
	return time.Time{}, common.ErrNotFound
}

func (f *fakeContestRepo) IsContestAdmin(_ context.Context, contestID, userID int64) (bool, error) {
	for _, c := range f.byAlias {
		if c.ID == contestID && c.DirectorID == userID {
			return true, nil
		}
	}
	return f.admins[pair{contestID, userID}], nil
}

type fakeRunRepo struct {
	mu      sync.Mutex
	runs    []*model.Run
	saveErr error

	// onRecent runs after GetRecentRunTimestamp has read, outside the lock,
	// so a caller blocked in it still holds the answer it got.
	onRecent func()
}

func (f *fakeRunRepo) SaveRun(_ context.Context, run *model.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return fmt.Errorf("insert: %w", f.saveErr)
	}
	for _, r := range f.runs {
		if r.GUID == run.GUID {
			return common.ErrConflict
		}
	}
	run.ID = int64(len(f.runs) + 1)
	stored := *run
	f.runs = append(f.runs, &stored)
	return nil
}

func (f *fakeRunRepo) GetRunByAlias(_ context.Context, guid string) (*model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.GUID == guid {
			run := *r
			return &run, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeRunRepo) GetRecentRunTimestamp(_ context.Context, contestID *int64, problemID, userID int64) (time.Time, bool, error) {
	f.mu.Lock()
	var last time.Time
	found := false
	for _, r := range f.runs {
		if r.UserID != userID || r.ProblemID != problemID || !sameContest(r.ContestID, contestID) {
			continue
		}
		if !found || r.Time.After(last) {
			last, found = r.Time, true
		}
	}
	f.mu.Unlock()

	if f.onRecent != nil {
		f.onRecent()
	}
	return last, found, nil
}

func (f *fakeRunRepo) ListQueuedRuns(_ context.Context, olderThan time.Time, limit int) ([]model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Run
	for _, r := range f.runs {
		if r.Status == model.StatusQueued && r.Time.Before(olderThan) && len(out) < limit {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRunRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

func sameContest(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type fakeBlobs struct {
	mu       sync.Mutex
	data     map[string][]byte
	writeErr error
}

func (f *fakeBlobs) Write(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return fmt.Errorf("%w: %w", common.ErrFilesystemOperation, f.writeErr)
	}
	f.data[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeBlobs) Read(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return b, nil
}

type fakePipeline struct {
	mu       sync.Mutex
	enqueued []int64
	err      error
}

func (f *fakePipeline) Enqueue(_ context.Context, run *model.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, run.ID)
	return nil
}

func (f *fakePipeline) Close() error { return nil }

type fakeCache struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *fakeCache) Delete(_ context.Context, prefix, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, prefix+key)
	return nil
}

// grantAll never refuses a claim, which leaves only the read-then-write
// check against stored runs.
type grantAll struct{}

func (grantAll) Reserve(context.Context, string, time.Duration) (string, bool, error) {
	return "t", true, nil
}

func (grantAll) Release(context.Context, string, string) error { return nil }

var (
	contestStart = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	contestEnd   = contestStart.Add(5 * time.Hour)
)

const (
	userAlice  int64 = 100
	userBob    int64 = 101
	userAuthor int64 = 7
	userDirect int64 = 8
	userRoot   int64 = 1
)

type harness struct {
	clock       *testClock
	problems    *fakeProblemRepo
	contests    *fakeContestRepo
	runs        *fakeRunRepo
	blobs       *fakeBlobs
	pipeline    *fakePipeline
	cache       *fakeCache
	reserver    lock.Reserver
	admission   *AdmissionController
	invalidator *ScoreboardCacheInvalidator
	submissions *SubmissionService
	queries     *RunQueryService
}

// newHarness seeds problem "sumas" (id 3, practice open after contestEnd)
// and a public contest "finals" (id 4) starting at contestStart with a 60s
// gap and contest penalty policy. Alice is registered, Bob is not.
func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &testClock{now: contestStart.Add(30 * time.Minute)}
	author := userAuthor
	h := &harness{
		clock: clock,
		problems: &fakeProblemRepo{
			byAlias:   map[string]*model.Problem{"sumas": {ID: 3, Alias: "sumas", Title: "Sumas", AuthorID: &author}},
			deadlines: map[int64]time.Time{3: contestEnd},
		},
		contests: &fakeContestRepo{
			byAlias: map[string]*model.Contest{"finals": {
				ID: 4, Alias: "finals", Title: "Finals", DirectorID: userDirect, Public: true,
				StartTime: contestStart, FinishTime: contestEnd,
				PenaltyTimeStart: model.PenaltyFromContest, SubmissionsGapSeconds: 60,
			}},
			links:  map[pair]bool{{4, 3}: true},
			users:  map[pair]*model.ContestUser{{userAlice, 4}: {UserID: userAlice, ContestID: 4, AccessTime: contestStart.Add(10 * time.Minute)}},
			admins: map[pair]bool{},
			opened: map[[3]int64]time.Time{},
		},
		runs:     &fakeRunRepo{},
		blobs:    &fakeBlobs{data: map[string][]byte{}},
		pipeline: &fakePipeline{},
		cache:    &fakeCache{},
		reserver: lock.NewLocalReserverWithClock(clock.Now),
	}
	h.build()
	return h
}

// build wires the services from the harness fields; call again after
// swapping a collaborator.
func (h *harness) build() {
	authz := NewAuthorizer(h.problems, h.contests)
	h.admission = NewAdmissionController(h.problems, h.contests, h.runs, authz,
		NewPenaltyCalculator(h.contests), h.reserver, 60*time.Second)
	h.admission.now = h.clock.Now
	h.invalidator = NewScoreboardCacheInvalidator(h.cache, time.Second)
	dispatcher := NewGradingDispatcher(h.runs, h.blobs, h.pipeline, h.invalidator)
	h.submissions = NewSubmissionService(h.admission, NewRunRecordFactory(), dispatcher, 1024)
	h.queries = NewRunQueryService(h.runs, h.blobs, authz)
}

func (h *harness) contest() *model.Contest {
	return h.contests.byAlias["finals"]
}

func user(id int64) model.Requestor {
	return model.Requestor{UserID: id, Role: model.RoleUser}
}

func root() model.Requestor {
	return model.Requestor{UserID: userRoot, Role: model.RoleAdmin}
}

func contestRun(source string) CreateRunRequest {
	return CreateRunRequest{ProblemAlias: "sumas", ContestAlias: "finals", Language: "cpp", Source: source}
}

func practiceRun(source string) CreateRunRequest {
	return CreateRunRequest{ProblemAlias: "sumas", Language: "py", Source: source}
}
