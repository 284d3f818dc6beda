package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"judge_gate/internal/common"
	"judge_gate/internal/domain/model"
)

type ContestRepository interface {
	GetContestByAlias(ctx context.Context, alias string) (*model.Contest, error)
	GetContestProblemLink(ctx context.Context, contestID, problemID int64) (*model.ContestProblem, error)
	GetContestUser(ctx context.Context, userID, contestID int64) (*model.ContestUser, error)
	GetProblemOpenTimestamp(ctx context.Context, contestID, problemID, userID int64) (time.Time, error)
	IsContestAdmin(ctx context.Context, contestID, userID int64) (bool, error)
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

const contestColumns = `contest_id, alias, title, director_id, public, start_time, finish_time,
                        window_length, penalty_time_start, submissions_gap`

func scanContest(row rowScanner) (*model.Contest, error) {
	c := &model.Contest{}
	var window sql.NullInt32
	var penalty string
	if err := row.Scan(&c.ID, &c.Alias, &c.Title, &c.DirectorID, &c.Public, &c.StartTime, &c.FinishTime,
		&window, &penalty, &c.SubmissionsGapSeconds); err != nil {
		return nil, err
	}
	if window.Valid {
		w := int(window.Int32)
		c.WindowLength = &w
	}
	policy, err := model.ParsePenaltyTimeStart(penalty)
	if err != nil {
		slog.Warn("penalty_time_start for this contest is not a valid option, assuming none",
			"contest_id", c.ID, "value", penalty)
	}
	c.PenaltyTimeStart = policy
	return c, nil
}

func (r *pgContestRepository) GetContestByAlias(ctx context.Context, alias string) (*model.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE alias = $1`
	c, err := scanContest(r.db.QueryRowContext(ctx, query, alias))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.GetContestByAlias: %w: %w", common.ErrPersistence, err)
	}
	return c, nil
}

func (r *pgContestRepository) GetContestProblemLink(ctx context.Context, contestID, problemID int64) (*model.ContestProblem, error) {
	query := `SELECT contest_id, problem_id, points, "order"
              FROM contest_problems WHERE contest_id = $1 AND problem_id = $2`
	cp := &model.ContestProblem{}
	err := r.db.QueryRowContext(ctx, query, contestID, problemID).Scan(&cp.ContestID, &cp.ProblemID, &cp.Points, &cp.Order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.GetContestProblemLink: %w: %w", common.ErrPersistence, err)
	}
	return cp, nil
}

func (r *pgContestRepository) GetContestUser(ctx context.Context, userID, contestID int64) (*model.ContestUser, error) {
	query := `SELECT user_id, contest_id, access_time FROM contests_users WHERE user_id = $1 AND contest_id = $2`
	cu := &model.ContestUser{}
	err := r.db.QueryRowContext(ctx, query, userID, contestID).Scan(&cu.UserID, &cu.ContestID, &cu.AccessTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.GetContestUser: %w: %w", common.ErrPersistence, err)
	}
	return cu, nil
}

func (r *pgContestRepository) GetProblemOpenTimestamp(ctx context.Context, contestID, problemID, userID int64) (time.Time, error) {
	query := `SELECT open_time FROM contest_problem_opened
              WHERE contest_id = $1 AND problem_id = $2 AND user_id = $3`
	var opened time.Time
	err := r.db.QueryRowContext(ctx, query, contestID, problemID, userID).Scan(&opened)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("pgContestRepository.GetProblemOpenTimestamp: %w: %w", common.ErrPersistence, err)
	}
	return opened, nil
}

func (r *pgContestRepository) IsContestAdmin(ctx context.Context, contestID, userID int64) (bool, error) {
	query := `SELECT EXISTS (
                  SELECT 1 FROM contests WHERE contest_id = $1 AND director_id = $2
                  UNION ALL
                  SELECT 1 FROM contest_admins WHERE contest_id = $1 AND user_id = $2
              )`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, contestID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("pgContestRepository.IsContestAdmin: %w: %w", common.ErrPersistence, err)
	}
	return ok, nil
}
