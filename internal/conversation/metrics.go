package conversation

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for the assistant loop.
type Metrics struct {
	completionLatency *prometheus.HistogramVec
	toolCallsTotal    *prometheus.CounterVec
	failoverTotal     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		completionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sisvida",
			Subsystem: "assistant",
			Name:      "completion_latency_seconds",
			Help:      "Latency of LLM completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sisvida",
			Subsystem: "assistant",
			Name:      "tool_calls_total",
			Help:      "Total tool executions requested by the model",
		}, []string{"tool", "status"}),
		failoverTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sisvida",
			Subsystem: "assistant",
			Name:      "provider_failover_total",
			Help:      "Completions handed to the next provider in the chain",
		}, []string{"from_provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.completionLatency, m.toolCallsTotal, m.failoverTotal)
	return m
}

func (m *Metrics) ObserveCompletion(status string, seconds float64) {
	if m == nil {
		return
	}
	m.completionLatency.WithLabelValues(status).Observe(seconds)
}

func (m *Metrics) ObserveToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

func (m *Metrics) ObserveFailover(fromProvider string) {
	if m == nil {
		return
	}
	m.failoverTotal.WithLabelValues(fromProvider).Inc()
}
