// Package metrics defines the Prometheus instrumentation surface for
// the analyzer pipeline: per-analyzer run duration, cache hit/miss
// ratio, and per-source registry availability (spec.md §5's shared
// resources, observed from the outside).
//
// Grounded on the teacher's singleton metrics pattern
// (internal/infrastructure/llm/circuit_breaker_metrics.go): a struct
// of prometheus collectors built once via promauto and handed out
// through a sync.Once-guarded constructor, avoiding duplicate
// registration when multiple packages ask for the same metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the analyzer pipeline reports.
type Metrics struct {
	// AnalyzerRunDuration tracks how long one (analyzer, extension) run took.
	AnalyzerRunDuration *prometheus.HistogramVec

	// AnalyzerRunsTotal counts runs by analyzer and outcome
	// (success/failure/skipped).
	AnalyzerRunsTotal *prometheus.CounterVec

	// CacheHitsTotal and CacheMissesTotal track the driver's cache envelope.
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// SourceAvailability reports whether the last check of a
	// version-availability source succeeded (1) or not (0), by source name.
	SourceAvailability *prometheus.GaugeVec

	// SourceCheckDuration tracks per-source registry query latency.
	SourceCheckDuration *prometheus.HistogramVec
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the process-wide singleton, building it on first
// use so tests and multiple analyzer packages never double-register
// the same collector names against the default registry.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = newWith(promauto.With(prometheus.DefaultRegisterer), "typo3_upgrade_analyser", "analyzer")
	})
	return defaultMetrics
}

// New builds a fresh Metrics under the given namespace/subsystem.
// Exported for tests that want an isolated registry rather than the
// process-wide singleton.
func New(namespace, subsystem string) *Metrics {
	return newWith(promauto.With(prometheus.NewRegistry()), namespace, subsystem)
}

// newWith builds the collectors through factory, whose registerer
// decides which registry they are registered against.
func newWith(factory promauto.Factory, namespace, subsystem string) *Metrics {
	return &Metrics{
		AnalyzerRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of a single analyzer run against one extension",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"analyzer"},
		),
		AnalyzerRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total analyzer runs by analyzer and outcome",
			},
			[]string{"analyzer", "outcome"},
		),
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Cache hits in the analyzer driver's cache envelope",
			},
			[]string{"analyzer"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_misses_total",
				Help:      "Cache misses in the analyzer driver's cache envelope",
			},
			[]string{"analyzer"},
		),
		SourceAvailability: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "source_availability",
				Help:      "Whether the last check of a version-availability source succeeded (1) or not (0)",
			},
			[]string{"source"},
		),
		SourceCheckDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "source_check_duration_seconds",
				Help:      "Duration of a single version-availability source check",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		),
	}
}

// Outcome labels for AnalyzerRunsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// RecordRun reports one analyzer run's duration and outcome.
func (m *Metrics) RecordRun(analyzer string, seconds float64, successful, skipped bool) {
	m.AnalyzerRunDuration.WithLabelValues(analyzer).Observe(seconds)
	switch {
	case skipped:
		m.AnalyzerRunsTotal.WithLabelValues(analyzer, OutcomeSkipped).Inc()
	case successful:
		m.AnalyzerRunsTotal.WithLabelValues(analyzer, OutcomeSuccess).Inc()
	default:
		m.AnalyzerRunsTotal.WithLabelValues(analyzer, OutcomeFailure).Inc()
	}
}

// RecordCacheLookup reports a cache hit or miss for one analyzer.
func (m *Metrics) RecordCacheLookup(analyzer string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(analyzer).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(analyzer).Inc()
}

// RecordSourceCheck reports one version-availability source query's
// outcome and duration.
func (m *Metrics) RecordSourceCheck(source string, available bool, seconds float64) {
	value := 0.0
	if available {
		value = 1.0
	}
	m.SourceAvailability.WithLabelValues(source).Set(value)
	m.SourceCheckDuration.WithLabelValues(source).Observe(seconds)
}
