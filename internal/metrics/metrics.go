// Package metrics holds the relay's prometheus collectors.
//
// Collectors are registered on a private registry rather than the global
// default, so tests and multiple servers in one process do not collide.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relay"

// Metrics is the set of relay collectors.
type Metrics struct {
	registry *prometheus.Registry

	events         *prometheus.CounterVec
	gateFailures   *prometheus.CounterVec
	internalErrors prometheus.Counter
	relayed        *prometheus.CounterVec
}

// Gauges reports live session counts on scrape.
type Gauges interface {
	Len() int
	Online() int
}

// New builds and registers the collectors. g may be nil.
func New(g Gauges) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Number of inbound events by name",
			},
			[]string{"event"},
		),
		gateFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_failures_total",
				Help:      "Number of events rejected by a gate, by error type",
			},
			[]string{"type"},
		),
		internalErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "internal_errors_total",
				Help:      "Number of handler failures reported as InternalError",
			},
		),
		relayed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relayed_messages_total",
				Help:      "Number of relay attempts by result",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(m.events, m.gateFailures, m.internalErrors, m.relayed)

	if g != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions",
				Help:      "Number of live sessions",
			}, func() float64 { return float64(g.Len()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "authenticated_sessions",
				Help:      "Number of authenticated sessions",
			}, func() float64 { return float64(g.Online()) }),
		)
	}
	return m
}

// Event counts one inbound event.
func (m *Metrics) Event(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}

// GateFailure counts one gate rejection.
func (m *Metrics) GateFailure(errType string) {
	if m == nil {
		return
	}
	m.gateFailures.WithLabelValues(errType).Inc()
}

// InternalError counts one InternalError reply.
func (m *Metrics) InternalError() {
	if m == nil {
		return
	}
	m.internalErrors.Inc()
}

// Relayed counts one relay attempt.
func (m *Metrics) Relayed(delivered bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "not_found"
	}
	m.relayed.WithLabelValues(result).Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
