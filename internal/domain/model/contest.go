package model

import (
	"fmt"
	"time"
)

// PenaltyTimeStart selects the reference instant used to compute a run's
// submit delay.
type PenaltyTimeStart int

const (
	PenaltyFromNone PenaltyTimeStart = iota
	PenaltyFromContest
	PenaltyFromProblem
)

func (p PenaltyTimeStart) String() string {
	switch p {
	case PenaltyFromContest:
		return "contest"
	case PenaltyFromProblem:
		return "problem"
	default:
		return "none"
	}
}

func (p PenaltyTimeStart) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePenaltyTimeStart parses the stored policy value. Unknown values
// return PenaltyFromNone and an error so callers can report them.
func ParsePenaltyTimeStart(s string) (PenaltyTimeStart, error) {
	switch s {
	case "contest":
		return PenaltyFromContest, nil
	case "problem":
		return PenaltyFromProblem, nil
	case "none":
		return PenaltyFromNone, nil
	}
	return PenaltyFromNone, fmt.Errorf("unknown penalty_time_start %q", s)
}

type Contest struct {
	ID                    int64            `json:"contest_id"`
	Alias                 string           `json:"alias"`
	Title                 string           `json:"title"`
	DirectorID            int64            `json:"director_id"`
	Public                bool             `json:"public"`
	StartTime             time.Time        `json:"start_time"`
	FinishTime            time.Time        `json:"finish_time"`
	WindowLength          *int             `json:"window_length,omitempty"` // minutes
	PenaltyTimeStart      PenaltyTimeStart `json:"penalty_time_start"`
	SubmissionsGapSeconds int              `json:"submissions_gap"`
}

// SubmissionsGap is the minimum time between two runs of the same user on
// the same problem.
func (c *Contest) SubmissionsGap() time.Duration {
	return time.Duration(c.SubmissionsGapSeconds) * time.Second
}

// Window returns the personal access window length, if configured.
func (c *Contest) Window() (time.Duration, bool) {
	if c.WindowLength == nil {
		return 0, false
	}
	return time.Duration(*c.WindowLength) * time.Minute, true
}

// EffectiveEnd is the instant after which the given participant may no
// longer submit. cu may be nil for users that never opened the contest.
func (c *Contest) EffectiveEnd(cu *ContestUser) time.Time {
	window, ok := c.Window()
	if !ok || cu == nil {
		return c.FinishTime
	}
	personal := cu.AccessTime.Add(window)
	if personal.Before(c.FinishTime) {
		return personal
	}
	return c.FinishTime
}

// IsInsideContest reports whether now falls inside the participant's
// active window.
func (c *Contest) IsInsideContest(cu *ContestUser, now time.Time) bool {
	if now.Before(c.StartTime) || now.After(c.FinishTime) {
		return false
	}
	return !now.After(c.EffectiveEnd(cu))
}

// ContestUser is created when a user first opens a contest.
type ContestUser struct {
	UserID     int64     `json:"user_id"`
	ContestID  int64     `json:"contest_id"`
	AccessTime time.Time `json:"access_time"`
}
