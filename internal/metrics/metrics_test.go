package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.Attempts.WithLabelValues("azure", OutcomeSuccess).Inc()
	c.Attempts.WithLabelValues("azure", OutcomeError).Add(2)
	c.Fallbacks.Inc()
	c.ValidationFailures.WithLabelValues("kernel").Inc()
	c.Latency.WithLabelValues("azure").Observe(0.5)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Attempts.WithLabelValues("azure", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Attempts.WithLabelValues("azure", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Fallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ValidationFailures.WithLabelValues("kernel")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestCollectorSharedRegistryReusesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewCollector(reg)
	second := NewCollector(reg)

	first.Fallbacks.Inc()
	second.Fallbacks.Inc()
	second.Attempts.WithLabelValues("azure", OutcomeSuccess).Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(first.Fallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.Attempts.WithLabelValues("azure", OutcomeSuccess)))
}

func TestCollectorsAreIsolatedPerRegistry(t *testing.T) {
	a := NewCollector(prometheus.NewRegistry())
	b := NewCollector(prometheus.NewRegistry())

	a.Fallbacks.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Fallbacks))
}
