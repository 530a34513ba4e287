// Package metrics exposes Prometheus instrumentation for agent runs and
// history persistence.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	agentRunTotal    *prometheus.CounterVec
	agentRunDuration prometheus.Histogram
	decodeFallbacks  prometheus.Counter
	denialsTotal     prometheus.Counter

	activeSessions      prometheus.Gauge
	historyLoadDuration prometheus.Histogram
	historySaveDuration prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			agentRunTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_run_total",
					Help: "Total agent invocations by outcome.",
				},
				[]string{"status"},
			),
			agentRunDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "agent_run_duration_seconds",
					Help:    "Agent invocation duration in seconds.",
					Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
				},
			),
			decodeFallbacks: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "agent_decode_fallback_total",
					Help: "Responses that fell back from structured to plain text.",
				},
			),
			denialsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "agent_permission_denials_total",
					Help: "Permission denials reported by the agent.",
				},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "history_sessions",
					Help: "Session count for the loaded project.",
				},
			),
			historyLoadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "history_load_duration_seconds",
					Help:    "Project history load duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			historySaveDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "history_save_duration_seconds",
					Help:    "Project history save duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
		}

		prometheus.MustRegister(
			m.agentRunTotal,
			m.agentRunDuration,
			m.decodeFallbacks,
			m.denialsTotal,
			m.activeSessions,
			m.historyLoadDuration,
			m.historySaveDuration,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// RecordAgentRun records one invocation outcome and its duration.
func RecordAgentRun(status string, duration time.Duration) {
	m := getMetrics()
	m.agentRunTotal.WithLabelValues(status).Inc()
	m.agentRunDuration.Observe(duration.Seconds())
}

// RecordDecodeFallback counts a structured-parse failure that degraded to
// plain text.
func RecordDecodeFallback() {
	getMetrics().decodeFallbacks.Inc()
}

// RecordPermissionDenials counts denials reported in a structured response.
func RecordPermissionDenials(n int) {
	getMetrics().denialsTotal.Add(float64(n))
}

// SetActiveSessions sets the session count gauge for the loaded project.
func SetActiveSessions(n int) {
	getMetrics().activeSessions.Set(float64(n))
}

// RecordHistoryLoad records a project history load duration.
func RecordHistoryLoad(d time.Duration) {
	getMetrics().historyLoadDuration.Observe(d.Seconds())
}

// RecordHistorySave records a project history save duration.
func RecordHistorySave(d time.Duration) {
	getMetrics().historySaveDuration.Observe(d.Seconds())
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}
