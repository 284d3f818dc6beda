package model

import "time"

type RunStatus string
type Verdict string

const (
	StatusQueued    RunStatus = "queued"
	StatusWaiting   RunStatus = "waiting"
	StatusCompiling RunStatus = "compiling"
	StatusRunning   RunStatus = "running"
	StatusReady     RunStatus = "ready"
)

const (
	VerdictPending           Verdict = "pending"
	VerdictAccepted          Verdict = "AC"
	VerdictPartiallyAccepted Verdict = "PA"
	VerdictWrongAnswer       Verdict = "WA"
	VerdictTimeLimitExceeded Verdict = "TLE"
	VerdictMemoryLimit       Verdict = "MLE"
	VerdictRuntimeError      Verdict = "RTE"
	VerdictCompileError      Verdict = "CE"
	VerdictJudgeError        Verdict = "JE"
)

// Run is one submission attempt. It is created once at admission time and
// later updated only by the grading pipeline.
type Run struct {
	ID           int64     `json:"run_id"`
	GUID         string    `json:"guid"`
	UserID       int64     `json:"user_id"`
	ProblemID    int64     `json:"problem_id"`
	ContestID    *int64    `json:"contest_id,omitempty"` // nil for practice runs
	Language     Language  `json:"language"`
	Source       string    `json:"-"`
	Status       RunStatus `json:"status"`
	Verdict      Verdict   `json:"verdict"`
	Runtime      int       `json:"runtime"`
	Memory       int       `json:"memory"`
	Score        float64   `json:"score"`
	ContestScore float64   `json:"contest_score"`
	IP           string    `json:"ip"`
	SubmitDelay  int       `json:"submit_delay"` // minutes
	Time         time.Time `json:"time"`
	Test         bool      `json:"test"`
}

func (r *Run) IsPractice() bool {
	return r.ContestID == nil
}
