// Package metrics exposes agent counters and histograms for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "partsbuddy"

type Metrics struct {
	registry *prometheus.Registry

	turns           *prometheus.CounterVec
	turnDuration    prometheus.Histogram
	turnErrors      prometheus.Counter
	classifications *prometheus.CounterVec
	toolCalls       *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	groundedReplies *prometheus.CounterVec
	activeSessions  prometheus.GaugeFunc
}

// New registers every collector on a private registry. activeSessions is
// read on each scrape; it may be nil.
func New(activeSessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Handled turns by intent and scope.",
		}, []string{"intent", "in_scope"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		turnErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_errors_total",
			Help:      "Turns that could not be handled.",
		}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intent_classifications_total",
			Help:      "Intent decisions by provenance.",
		}, []string{"intent", "provenance"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool steps by outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool call latency, cache hits included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		groundedReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies by how they were phrased.",
		}, []string{"source"}),
	}

	m.registry.MustRegister(
		m.turns,
		m.turnDuration,
		m.turnErrors,
		m.classifications,
		m.toolCalls,
		m.toolDuration,
		m.groundedReplies,
		collectors.NewGoCollector(),
	)

	if activeSessions != nil {
		m.activeSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions with live in-memory state.",
		}, func() float64 { return float64(activeSessions()) })
		m.registry.MustRegister(m.activeSessions)
	}
	return m
}

func (m *Metrics) ObserveTurn(intent models.Intent, inScope, grounded bool, elapsed time.Duration) {
	m.turns.WithLabelValues(string(intent.Type), boolLabel(inScope)).Inc()
	m.classifications.WithLabelValues(string(intent.Type), string(intent.Provenance)).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
	source := "template"
	if grounded {
		source = "model"
	}
	m.groundedReplies.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveTurnError() {
	m.turnErrors.Inc()
}

// ObserveTool implements tools.Observer
func (m *Metrics) ObserveTool(tool models.ToolName, outcome string, elapsed time.Duration) {
	m.toolCalls.WithLabelValues(string(tool), outcome).Inc()
	if elapsed > 0 {
		m.toolDuration.WithLabelValues(string(tool)).Observe(elapsed.Seconds())
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
