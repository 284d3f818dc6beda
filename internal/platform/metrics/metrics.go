package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "judge_gate"

// Admission modes and results used as label values.
const (
	ModePractice = "practice"
	ModeContest  = "contest"

	ResultAdmitted = "admitted"
)

var (
	admissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "admission_total",
			Help:      "Counter of run admission attempts broken out by mode and result.",
		},
		[]string{"mode", "result"},
	)

	dispatchErrCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "dispatch_error_total",
			Help:      "Counter of run dispatch failures broken out by stage.",
		},
		[]string{"stage"},
	)

	scoreboardInvalidationErrCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "scoreboard_invalidation_error_total",
			Help:      "Counter of failed scoreboard cache invalidations.",
		},
	)

	redispatchCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "redispatch_total",
			Help:      "Counter of queued runs handed to the grading pipeline again.",
		},
	)

	submissionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "submission_duration_seconds",
			Help:      "Time spent admitting and dispatching a run.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)
)

var registerOnce sync.Once

// Register registers all metrics with the default registry.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			admissionCounter,
			dispatchErrCounter,
			scoreboardInvalidationErrCounter,
			redispatchCounter,
			submissionLatency,
		)
	})
}

func RecordAdmission(mode, result string) {
	admissionCounter.WithLabelValues(mode, result).Inc()
}

func RecordDispatchError(stage string) {
	dispatchErrCounter.WithLabelValues(stage).Inc()
}

func RecordScoreboardInvalidationError() {
	scoreboardInvalidationErrCounter.Inc()
}

func RecordRedispatch(n int) {
	redispatchCounter.Add(float64(n))
}

func RecordSubmissionLatency(mode string, d time.Duration) {
	submissionLatency.WithLabelValues(mode).Observe(d.Seconds())
}
