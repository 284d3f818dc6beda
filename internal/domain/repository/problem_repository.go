package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"judge_gate/internal/common"
	"judge_gate/internal/domain/model"
)

type ProblemRepository interface {
	GetProblemByAlias(ctx context.Context, alias string) (*model.Problem, error)
	GetProblemByID(ctx context.Context, id int64) (*model.Problem, error)
	// GetPracticeDeadline returns the latest finish time among the contests
	// that include the problem, or the zero time if there are none.
	GetPracticeDeadline(ctx context.Context, problemID int64) (time.Time, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const problemColumns = `problem_id, alias, title, author_id, creation_date`

func scanProblem(row rowScanner) (*model.Problem, error) {
	p := &model.Problem{}
	var author sql.NullInt64
	if err := row.Scan(&p.ID, &p.Alias, &p.Title, &author, &p.Created); err != nil {
		return nil, err
	}
	if author.Valid {
		p.AuthorID = &author.Int64
	}
	return p, nil
}

func (r *pgProblemRepository) GetProblemByAlias(ctx context.Context, alias string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE alias = $1`
	p, err := scanProblem(r.db.QueryRowContext(ctx, query, alias))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.GetProblemByAlias: %w: %w", common.ErrPersistence, err)
	}
	return p, nil
}

func (r *pgProblemRepository) GetProblemByID(ctx context.Context, id int64) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE problem_id = $1`
	p, err := scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.GetProblemByID: %w: %w", common.ErrPersistence, err)
	}
	return p, nil
}

func (r *pgProblemRepository) GetPracticeDeadline(ctx context.Context, problemID int64) (time.Time, error) {
	query := `SELECT MAX(c.finish_time)
              FROM contests c
              JOIN contest_problems cp ON cp.contest_id = c.contest_id
              WHERE cp.problem_id = $1`
	var deadline sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, problemID).Scan(&deadline); err != nil {
		return time.Time{}, fmt.Errorf("pgProblemRepository.GetPracticeDeadline: %w: %w", common.ErrPersistence, err)
	}
	if !deadline.Valid {
		return time.Time{}, nil
	}
	return deadline.Time, nil
}
