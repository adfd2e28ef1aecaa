package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRoutingMetrics(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())

	m.PicksTotal.WithLabelValues(PickOutcomeHit).Inc()
	m.PicksTotal.WithLabelValues(PickOutcomeHit).Inc()
	m.PicksTotal.WithLabelValues(PickOutcomeEmpty).Inc()
	m.FallbacksTotal.Inc()
	m.PenaltiesTotal.Inc()
	m.QueryLatency.Observe(0.005)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PicksTotal.WithLabelValues(PickOutcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PicksTotal.WithLabelValues(PickOutcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PenaltiesTotal))
}

func TestRoutingMetricsSeparateRegistries(t *testing.T) {
	t.Parallel()

	first := New(prometheus.NewRegistry())
	second := New(prometheus.NewRegistry())

	first.FallbacksTotal.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(first.FallbacksTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.FallbacksTotal))
}
