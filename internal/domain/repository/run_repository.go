package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"judge_gate/internal/common"
	"judge_gate/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type RunRepository interface {
	// SaveRun inserts run with run.Time as its creation time and fills in
	// its surrogate ID.
	SaveRun(ctx context.Context, run *model.Run) error
	GetRunByAlias(ctx context.Context, guid string) (*model.Run, error)
	// GetRecentRunTimestamp returns the creation time of the user's latest run
	// on the problem, within contestID (nil for practice). ok is false when
	// there is none.
	GetRecentRunTimestamp(ctx context.Context, contestID *int64, problemID, userID int64) (ts time.Time, ok bool, err error)
	// ListQueuedRuns returns runs still waiting for the grader that were
	// created before olderThan, oldest first.
	ListQueuedRuns(ctx context.Context, olderThan time.Time, limit int) ([]model.Run, error)
}

type pgRunRepository struct {
	db *sql.DB
}

func NewPgRunRepository(db *sql.DB) RunRepository {
	return &pgRunRepository{db: db}
}

const runColumns = `run_id, guid, user_id, problem_id, contest_id, language, source, status, verdict,
                    runtime, memory, score, contest_score, ip, submit_delay, time, test`

func scanRun(row rowScanner) (*model.Run, error) {
	run := &model.Run{}
	var contestID sql.NullInt64
	if err := row.Scan(&run.ID, &run.GUID, &run.UserID, &run.ProblemID, &contestID, &run.Language, &run.Source,
		&run.Status, &run.Verdict, &run.Runtime, &run.Memory, &run.Score, &run.ContestScore, &run.IP,
		&run.SubmitDelay, &run.Time, &run.Test); err != nil {
		return nil, err
	}
	if contestID.Valid {
		run.ContestID = &contestID.Int64
	}
	return run, nil
}

func (r *pgRunRepository) SaveRun(ctx context.Context, run *model.Run) error {
	query := `INSERT INTO runs (guid, user_id, problem_id, contest_id, language, source, status, verdict,
                                runtime, memory, score, contest_score, ip, submit_delay, test, time)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
              RETURNING run_id`
	err := r.db.QueryRowContext(ctx, query,
		run.GUID, run.UserID, run.ProblemID, run.ContestID, run.Language, run.Source, run.Status, run.Verdict,
		run.Runtime, run.Memory, run.Score, run.ContestScore, run.IP, run.SubmitDelay, run.Test, run.Time,
	).Scan(&run.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for guid
			return fmt.Errorf("run with this guid already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgRunRepository.SaveRun: %w: %w", common.ErrPersistence, err)
	}
	return nil
}

func (r *pgRunRepository) GetRunByAlias(ctx context.Context, guid string) (*model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE guid = $1`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, guid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgRunRepository.GetRunByAlias: %w: %w", common.ErrPersistence, err)
	}
	return run, nil
}

func (r *pgRunRepository) GetRecentRunTimestamp(ctx context.Context, contestID *int64, problemID, userID int64) (time.Time, bool, error) {
	query := `SELECT MAX(time) FROM runs
              WHERE user_id = $1 AND problem_id = $2 AND contest_id IS NOT DISTINCT FROM $3`
	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, userID, problemID, contestID).Scan(&last); err != nil {
		return time.Time{}, false, fmt.Errorf("pgRunRepository.GetRecentRunTimestamp: %w: %w", common.ErrPersistence, err)
	}
	return last.Time, last.Valid, nil
}

func (r *pgRunRepository) ListQueuedRuns(ctx context.Context, olderThan time.Time, limit int) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs
              WHERE status = $1 AND time < $2
              ORDER BY time ASC LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, model.StatusQueued, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("pgRunRepository.ListQueuedRuns query: %w: %w", common.ErrPersistence, err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("pgRunRepository.ListQueuedRuns scan: %w: %w", common.ErrPersistence, err)
		}
		runs = append(runs, *run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgRunRepository.ListQueuedRuns rows.Err: %w: %w", common.ErrPersistence, err)
	}
	return runs, nil
}
