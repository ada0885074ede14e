package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return New("test", "analyzer")
}

func TestNew_AllCollectorsInitialized(t *testing.T) {
	m := newTestMetrics(t)

	require.NotNil(t, m.AnalyzerRunDuration)
	require.NotNil(t, m.AnalyzerRunsTotal)
	require.NotNil(t, m.CacheHitsTotal)
	require.NotNil(t, m.CacheMissesTotal)
	require.NotNil(t, m.SourceAvailability)
	require.NotNil(t, m.SourceCheckDuration)
}

func TestDefault_ReturnsSameInstance(t *testing.T) {
	first := Default()
	second := Default()
	assert.Same(t, first, second)
}

func TestRecordRun_CountsByOutcome(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRun("rewrite", 1.5, true, false)
	m.RecordRun("rewrite", 0.2, false, false)
	m.RecordRun("rewrite", 0.1, false, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalyzerRunsTotal.WithLabelValues("rewrite", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalyzerRunsTotal.WithLabelValues("rewrite", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalyzerRunsTotal.WithLabelValues("rewrite", OutcomeSkipped)))
}

func TestRecordCacheLookup_TracksHitsAndMisses(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCacheLookup("code_metrics", true)
	m.RecordCacheLookup("code_metrics", true)
	m.RecordCacheLookup("code_metrics", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("code_metrics")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("code_metrics")))
}

func TestRecordSourceCheck_SetsAvailabilityGauge(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSourceCheck("packagist", true, 0.3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceAvailability.WithLabelValues("packagist")))

	m.RecordSourceCheck("packagist", false, 0.1)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SourceAvailability.WithLabelValues("packagist")))
}
