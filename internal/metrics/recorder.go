// Package metrics records pipeline telemetry. The Recorder interface
// mirrors the shape of the teacher's observability/metrics.Recorder
// (RecordOperation/RecordDuration/RecordError), backed here by
// prometheus/client_golang counters and a histogram instead of the
// teacher's in-memory maps.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is what Engine depends on to record per-buffer pipeline
// telemetry. Every call must be cheap enough for the render thread: no
// allocation, no I/O, no blocking beyond prometheus's own label-map lock.
type Recorder interface {
	RecordOperation(operation, status string)
	RecordDuration(operation string, seconds float64)
	RecordError(operation, errorType string)
}

// NoopRecorder discards everything. The zero-value default for Engine, so
// the render thread never needs a nil check before recording.
type NoopRecorder struct{}

func (NoopRecorder) RecordOperation(operation, status string)        {}
func (NoopRecorder) RecordDuration(operation string, seconds float64) {}
func (NoopRecorder) RecordError(operation, errorType string)          {}

// PrometheusRecorder is the production Recorder: one CounterVec for
// operation outcomes, one HistogramVec for durations, one CounterVec for
// errors, all pre-registered at construction so the render thread only
// ever does a label-keyed Inc()/Observe() and never a registration.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	errors     *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder and registers its collectors
// with reg. A nil reg skips registration, useful for tests that construct
// a recorder without a live registry.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	pr := &PrometheusRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiocore",
			Name:      "operations_total",
			Help:      "Count of pipeline operations by outcome status.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "audiocore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of pipeline operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiocore",
			Name:      "errors_total",
			Help:      "Count of pipeline errors by type.",
		}, []string{"operation", "error_type"}),
	}
	if reg != nil {
		reg.MustRegister(pr.operations, pr.durations, pr.errors)
	}
	return pr
}

func (pr *PrometheusRecorder) RecordOperation(operation, status string) {
	pr.operations.WithLabelValues(operation, status).Inc()
}

func (pr *PrometheusRecorder) RecordDuration(operation string, seconds float64) {
	pr.durations.WithLabelValues(operation).Observe(seconds)
}

func (pr *PrometheusRecorder) RecordError(operation, errorType string) {
	pr.errors.WithLabelValues(operation, errorType).Inc()
}
