package middleware

import (
	"time"

	"github.com/aretw0/tabstate/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by the Metrics middleware.
type Metrics struct {
	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	commits    prometheus.Counter
	dropped    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabstate_dispatch_total",
				Help: "Total number of dispatched actions",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabstate_dispatch_duration_seconds",
				Help:    "Time spent processing an action, middleware and reducers included",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"kind"},
		),
		commits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tabstate_commits_total",
				Help: "Total number of state commits",
			},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabstate_dropped_actions_total",
				Help: "Total number of actions dropped by middleware",
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.dispatches, m.duration, m.commits, m.dropped)
	}
	return m
}

// Collectors returns every collector, for callers registering them elsewhere.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.dispatches, m.duration, m.commits, m.dropped}
}

// Instrument returns a middleware recording dispatches into m. Place it first so
// the duration covers the whole chain.
func Instrument[S, A any](m *Metrics) store.Middleware[S, A] {
	return func(s store.MiddlewareStore[S, A], next store.Next[A], action A) {
		kind := store.ActionKind(action)
		start := time.Now()
		before := s.Revision()

		next(action)

		m.dispatches.WithLabelValues(kind).Inc()
		m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if s.Revision() != before {
			m.commits.Inc()
		}
	}
}
