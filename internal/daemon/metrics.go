package daemon

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "smelter"

// Metrics collects daemon observability series on a private registry,
// so two daemons in one process never trip duplicate registration.
type Metrics struct {
	registry     *prometheus.Registry
	runsTotal    prometheus.Counter
	runsFailed   prometheus.Counter
	runDuration  prometheus.Histogram
	filesWatched prometheus.Gauge
	cacheSize    prometheus.Gauge
}

// NewMetrics creates and registers the daemon's metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Total number of regeneration runs attempted.",
		}),
		runsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_failed_total",
			Help:      "Regeneration runs that ended with errors.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of regeneration runs.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		filesWatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "files_watched",
			Help:      "Schema source files covered by the last discovery pass.",
		}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cache_size",
			Help:      "Source fingerprints tracked by the incremental cache.",
		}),
	}
	registry.MustRegister(m.runsTotal, m.runsFailed, m.runDuration, m.filesWatched, m.cacheSize)
	return m
}

// ObserveRun records one run attempt.
func (m *Metrics) ObserveRun(duration time.Duration, failed bool) {
	m.runsTotal.Inc()
	if failed {
		m.runsFailed.Inc()
	}
	m.runDuration.Observe(duration.Seconds())
}

// SetFilesWatched updates the watched-file gauge.
func (m *Metrics) SetFilesWatched(n int) {
	m.filesWatched.Set(float64(n))
}

// SetCacheSize updates the fingerprint cache gauge.
func (m *Metrics) SetCacheSize(n int) {
	m.cacheSize.Set(float64(n))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
