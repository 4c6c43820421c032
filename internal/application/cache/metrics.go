package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the cache collectors. A zero-value registerer leaves them
// unregistered, which keeps tests free of global state.
type Metrics struct {
	requests      *prometheus.CounterVec
	backendErrors *prometheus.CounterVec
	locks         *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "product_cache_requests_total",
				Help: "Product cache lookups by result",
			},
			[]string{"result"},
		),
		backendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_backend_errors_total",
				Help: "Cache backend errors absorbed by the cache layer",
			},
			[]string{"op"},
		),
		locks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_stampede_lock_total",
				Help: "Stampede lock attempts by outcome",
			},
			[]string{"outcome"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_invalidations_total",
				Help: "Cache invalidations by kind",
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.backendErrors, m.locks, m.invalidations)
	}
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.requests.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.requests.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) backendError(op string) {
	if m != nil {
		m.backendErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) lock(acquired bool) {
	if m == nil {
		return
	}
	if acquired {
		m.locks.WithLabelValues("acquired").Inc()
	} else {
		m.locks.WithLabelValues("contended").Inc()
	}
}

func (m *Metrics) invalidated(kind string) {
	if m != nil {
		m.invalidations.WithLabelValues(kind).Inc()
	}
}
