// Package metrics exposes Prometheus instrumentation for the notifier.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grateful_notifier"

// Outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeStale  = "stale"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	polls      *prometheus.CounterVec
	readSyncs  *prometheus.CounterVec
	expansions *prometheus.CounterVec
	unread     prometheus.Gauge
	sseClients prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Notification list fetches by outcome.",
		}, []string{"outcome"}),
		readSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_syncs_total",
			Help:      "Background read-state sync requests by outcome.",
		}, []string{"outcome"}),
		expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_fetches_total",
			Help:      "Batch children fetches by outcome.",
		}, []string{"outcome"}),
		unread: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unread",
			Help:      "Current unread root notifications.",
		}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected SSE view clients.",
		}),
	}
	m.registry.MustRegister(m.polls, m.readSyncs, m.expansions, m.unread, m.sseClients)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Poll(outcome string) {
	if m != nil {
		m.polls.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ReadSync(outcome string) {
	if m != nil {
		m.readSyncs.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) BatchFetch(outcome string) {
	if m != nil {
		m.expansions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SetUnread(n int) {
	if m != nil {
		m.unread.Set(float64(n))
	}
}

func (m *Metrics) SetSSEClients(n int) {
	if m != nil {
		m.sseClients.Set(float64(n))
	}
}
