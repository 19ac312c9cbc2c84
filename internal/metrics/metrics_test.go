package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverpulse/heat/internal/contracts"
)

func TestRecordEvaluation(t *testing.T) {
	r := New()
	eval := &contracts.Evaluation{
		Heat:        18,
		Change:      -2,
		Positioning: contracts.SignalResult{Signal: contracts.SeriesPositioning, Score: 20, Z: contracts.ZScore{Value: 1.2}},
		Flow:        contracts.SignalResult{Signal: contracts.SeriesFlow, Score: 15, Z: contracts.ZScore{Status: contracts.ZInsufficient}},
		Premium:     contracts.SignalResult{Signal: contracts.SeriesPremium, Score: 15, Z: contracts.ZScore{Value: 0.3}},
	}

	r.RecordEvaluation(eval)

	assert.Equal(t, 18.0, testutil.ToFloat64(r.heat))
	assert.Equal(t, -2.0, testutil.ToFloat64(r.change))
	assert.Equal(t, 20.0, testutil.ToFloat64(r.subScore.WithLabelValues("positioning")))
	assert.Equal(t, 1.2, testutil.ToFloat64(r.zScore.WithLabelValues("positioning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.evaluated.WithLabelValues("ok")))
}

func TestRecordEvaluationError(t *testing.T) {
	r := New()
	r.RecordEvaluationError(&contracts.EvaluationError{Errs: []error{
		&contracts.SignalError{Signal: contracts.SeriesFlow, Err: contracts.ErrDataInsufficient},
		&contracts.SignalError{Signal: contracts.SeriesPositioning, Err: contracts.ErrDegenerateStatistic},
	}})
	r.RecordEvaluationError(errors.New("database down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.evaluated.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("flow", "insufficient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("positioning", "degenerate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("all", "other")))
}

func TestRecordFetch(t *testing.T) {
	r := New()
	r.RecordFetch("cot", 0.2, nil)
	r.RecordFetch("cot", 0.1, errors.New("timeout"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("cot", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("cot", "error")))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordEvaluation(&contracts.Evaluation{})
		r.RecordEvaluationError(contracts.ErrDataInsufficient)
		r.RecordFetch("cot", 1, nil)
		r.RecordLatency("x", 1)
		r.RecordHTTP("/", "GET", 200, 0.1)
	})
}

func TestHandler(t *testing.T) {
	r := New()
	r.RecordHTTP("/api/heat", "GET", 200, 0.01)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `silver_heat_http_requests_total{method="GET",route="/api/heat",status="200"} 1`)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "insufficient", Reason(contracts.ErrDataInsufficient))
	assert.Equal(t, "degenerate", Reason(contracts.ErrDegenerateStatistic))
	assert.Equal(t, "configuration", Reason(contracts.ErrConfiguration))
	assert.Equal(t, "unordered", Reason(contracts.ErrUnorderedSeries))
	assert.Equal(t, "other", Reason(errors.New("x")))
}
