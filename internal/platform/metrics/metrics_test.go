package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAdmission(t *testing.T) {
	before := testutil.ToFloat64(admissionCounter.WithLabelValues(ModeContest, "rate_limited"))
	RecordAdmission(ModeContest, "rate_limited")
	RecordAdmission(ModeContest, "rate_limited")
	assert.Equal(t, before+2, testutil.ToFloat64(admissionCounter.WithLabelValues(ModeContest, "rate_limited")))
}

func TestRecordDispatchErrorAndRedispatch(t *testing.T) {
	beforeErr := testutil.ToFloat64(dispatchErrCounter.WithLabelValues("enqueue"))
	beforeRedispatch := testutil.ToFloat64(redispatchCounter)

	RecordDispatchError("enqueue")
	RecordRedispatch(3)

	assert.Equal(t, beforeErr+1, testutil.ToFloat64(dispatchErrCounter.WithLabelValues("enqueue")))
	assert.Equal(t, beforeRedispatch+3, testutil.ToFloat64(redispatchCounter))
}

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
	RecordSubmissionLatency(ModePractice, 20*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(submissionLatency))
}
