package conversation

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveCompletion("ok", 0.4)
	m.ObserveToolCall(toolCreateAppointment, "ok")
	m.ObserveToolCall(toolCreateAppointment, "rejected")
	m.ObserveFailover("openai")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCallsTotal.WithLabelValues(toolCreateAppointment, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCallsTotal.WithLabelValues(toolCreateAppointment, "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failoverTotal.WithLabelValues("openai")))
}

func TestMetricsCompletionHistogramCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveCompletion("ok", 0.2)
	m.ObserveCompletion("ok", 1.7)

	families, err := reg.Gather()
	require.NoError(t, err)

	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "sisvida_assistant_completion_latency_seconds" {
			hist = mf.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.InDelta(t, 1.9, hist.GetSampleSum(), 1e-9)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCompletion("ok", 0.1)
	m.ObserveToolCall("tool", "ok")
	m.ObserveFailover("openai")
}
