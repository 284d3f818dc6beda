package model

import (
	"time"
)

type Problem struct {
	ID       int64     `json:"problem_id"`
	Alias    string    `json:"alias"`
	Title    string    `json:"title"`
	AuthorID *int64    `json:"author_id,omitempty"`
	Created  time.Time `json:"creation_date"`
}

// ContestProblem links a problem to a contest.
type ContestProblem struct {
	ContestID int64   `json:"contest_id"`
	ProblemID int64   `json:"problem_id"`
	Points    float64 `json:"points"`
	Order     int     `json:"order"`
}

// ProblemOpenEvent records the first time a user opened a problem inside a contest.
type ProblemOpenEvent struct {
	ContestID int64     `json:"contest_id"`
	ProblemID int64     `json:"problem_id"`
	UserID    int64     `json:"user_id"`
	OpenTime  time.Time `json:"open_time"`
}
