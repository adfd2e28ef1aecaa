// Package metrics exposes Prometheus instrumentation for query routing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "scylla"
	subsystem = "routing"
)

// Pick outcome label values.
const (
	PickOutcomeHit   = "hit"
	PickOutcomeEmpty = "empty"
)

// RoutingMetrics holds all Prometheus metrics for query routing.
type RoutingMetrics struct {
	PicksTotal     *prometheus.CounterVec
	FallbacksTotal prometheus.Counter
	PenaltiesTotal prometheus.Counter
	QueryLatency   prometheus.Histogram
}

// New creates routing metrics and registers them with the given registerer.
// Each policy instance needs its own registerer, or its own registry.
func New(reg prometheus.Registerer) *RoutingMetrics {
	factory := promauto.With(reg)

	return &RoutingMetrics{
		PicksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "picks_total",
				Help:      "Total number of pick decisions, by outcome.",
			},
			[]string{"outcome"},
		),

		FallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fallbacks_total",
			Help:      "Total number of plans that had to consult fallback nodes.",
		}),

		PenaltiesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "node_penalties_total",
			Help:      "Total number of penalty windows opened for nodes.",
		}),

		QueryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "query_latency_seconds",
			Help:      "Latency of finished queries as reported back to the policy.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
