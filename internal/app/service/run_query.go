package service

import (
	"context"
	"fmt"
	"math"

	"judge_gate/internal/common"
	"judge_gate/internal/domain/model"
	"judge_gate/internal/domain/repository"
	"judge_gate/internal/platform/blobstore"
)

// RunView is the public projection of a run.
type RunView struct {
	GUID         string          `json:"guid"`
	Language     model.Language  `json:"language"`
	Status       model.RunStatus `json:"status"`
	Verdict      model.Verdict   `json:"verdict"`
	Runtime      int             `json:"runtime"`
	Memory       int             `json:"memory"`
	Score        float64         `json:"score"`
	ContestScore float64         `json:"contest_score"`
	Time         int64           `json:"time"`
	SubmitDelay  int             `json:"submit_delay"`
	Source       string          `json:"source"`
}

type RunQueryService struct {
	runRepo repository.RunRepository
	blobs   blobstore.Store
	authz   *Authorizer
}

func NewRunQueryService(runRepo repository.RunRepository, blobs blobstore.Store, authz *Authorizer) *RunQueryService {
	return &RunQueryService{runRepo: runRepo, blobs: blobs, authz: authz}
}

func (s *RunQueryService) GetDetails(ctx context.Context, requestor model.Requestor, runAlias string) (*RunView, error) {
	run, err := s.runRepo.GetRunByAlias(ctx, runAlias)
	if err != nil {
		return nil, fmt.Errorf("run %q: %w", runAlias, err)
	}

	ok, err := s.authz.CanViewRun(ctx, requestor, run)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("user %d may not view run %s: %w", requestor.UserID, run.GUID, common.ErrForbidden)
	}

	source, err := s.blobs.Read(ctx, run.GUID)
	if err != nil {
		// A missing blob for an existing run is a storage fault, not a 404.
		return nil, fmt.Errorf("%w: read source of run %s: %v", common.ErrFilesystemOperation, run.GUID, err)
	}

	return &RunView{
		GUID:         run.GUID,
		Language:     run.Language,
		Status:       run.Status,
		Verdict:      run.Verdict,
		Runtime:      run.Runtime,
		Memory:       run.Memory,
		Score:        round(run.Score, 4),
		ContestScore: round(run.ContestScore, 2),
		Time:         run.Time.Unix(),
		SubmitDelay:  run.SubmitDelay,
		Source:       string(source),
	}, nil
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
