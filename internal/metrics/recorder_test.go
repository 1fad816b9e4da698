package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_RecordsOperationsDurationsAndErrors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.RecordOperation("process", "ok")
	rec.RecordOperation("process", "ok")
	rec.RecordDuration("process", 0.002)
	rec.RecordError("process", "plugin_chain_locked")

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var sawOperations, sawErrors, sawDurations bool
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "audiocore_operations_total":
			sawOperations = true
			assert.InDelta(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue(), 1e-9)
		case "audiocore_errors_total":
			sawErrors = true
			assert.InDelta(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue(), 1e-9)
		case "audiocore_operation_duration_seconds":
			sawDurations = true
			assert.EqualValues(t, 1, mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, sawOperations)
	assert.True(t, sawErrors)
	assert.True(t, sawDurations)
}

func TestNoopRecorder_NeverPanics(t *testing.T) {
	t.Parallel()

	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.RecordOperation("x", "y")
		r.RecordDuration("x", 1.0)
		r.RecordError("x", "y")
	})
}
