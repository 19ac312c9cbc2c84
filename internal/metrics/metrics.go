// Package metrics exposes heat index and pipeline metrics to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/silverpulse/heat/internal/contracts"
)

const namespace = "silver_heat"

// Recorder records pipeline metrics. A nil *Recorder is a no-op.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Recorder struct {
	registry *prometheus.Registry

	heat       prometheus.Gauge
	change     prometheus.Gauge
	subScore   *prometheus.GaugeVec
	zScore     *prometheus.GaugeVec
	evaluated  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	fetches    *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	httpTotal  *prometheus.CounterVec
	httpLength *prometheus.HistogramVec
}

// New creates a recorder with its own registry, including Go runtime and
// process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		heat: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index",
			Help:      "Latest composite heat index (5-25)",
		}),
		change: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_change",
			Help:      "Change of the heat index versus the previous evaluation",
		}),
		subScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscore",
			Help:      "Latest sub-score per signal",
		}, []string{"signal"}),
		zScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zscore",
			Help:      "Latest diagnostic z-score per signal (only when available)",
		}, []string{"signal"}),
		evaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Evaluations by result",
		}, []string{"result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_failures_total",
			Help:      "Signal scoring failures by reason",
		}, []string{"signal", "reason"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Source fetches by result",
		}, []string{"source", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		httpLength: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "method"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.heat, r.change, r.subScore, r.zScore,
		r.evaluated, r.failures, r.fetches, r.latency,
		r.httpTotal, r.httpLength,
	)
	return r
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordEvaluation updates the index gauges
func (r *Recorder) RecordEvaluation(eval *contracts.Evaluation) {
	if r == nil || eval == nil {
		return
	}
	r.evaluated.WithLabelValues("ok").Inc()
	r.heat.Set(float64(eval.Heat))
	r.change.Set(float64(eval.Change))

	for _, res := range eval.Results() {
		r.subScore.WithLabelValues(string(res.Signal)).Set(float64(res.Score))
		if res.Z.Available() {
			r.zScore.WithLabelValues(string(res.Signal)).Set(res.Z.Value)
		} else {
			r.zScore.DeleteLabelValues(string(res.Signal))
		}
	}
}

// RecordEvaluationError counts a failed evaluation and each failing signal
func (r *Recorder) RecordEvaluationError(err error) {
	if r == nil || err == nil {
		return
	}
	r.evaluated.WithLabelValues("failed").Inc()

	var ee *contracts.EvaluationError
	if !errors.As(err, &ee) {
		r.failures.WithLabelValues("all", Reason(err)).Inc()
		return
	}
	for _, sigErr := range ee.Errs {
		var se *contracts.SignalError
		if errors.As(sigErr, &se) {
			r.failures.WithLabelValues(string(se.Signal), Reason(se.Err)).Inc()
		}
	}
}

// RecordFetch counts one source download
func (r *Recorder) RecordFetch(source string, seconds float64, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.fetches.WithLabelValues(source, result).Inc()
	r.latency.WithLabelValues("fetch_" + source).Observe(seconds)
}

// RecordLatency records operation latency in seconds
func (r *Recorder) RecordLatency(op string, seconds float64) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordHTTP records one served request
func (r *Recorder) RecordHTTP(route, method string, status int, seconds float64) {
	if r == nil {
		return
	}
	r.httpTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpLength.WithLabelValues(route, method).Observe(seconds)
}

// Reason maps an error onto a low-cardinality label
func Reason(err error) string {
	switch {
	case errors.Is(err, contracts.ErrDataInsufficient):
		return "insufficient"
	case errors.Is(err, contracts.ErrDegenerateStatistic):
		return "degenerate"
	case errors.Is(err, contracts.ErrConfiguration):
		return "configuration"
	case errors.Is(err, contracts.ErrUnorderedSeries):
		return "unordered"
	default:
		return "other"
	}
}
