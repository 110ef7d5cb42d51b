package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dengue_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for a crawl-and-reconcile pass.
type Metrics struct {
	Runs          *prometheus.CounterVec   // labels: outcome={success,error}
	RunRunning    prometheus.Gauge
	StageDuration *prometheus.HistogramVec // labels: stage={bucket,weather,reconcile,sinks}
	LastSuccess   prometheus.Gauge

	// Navigation metrics.
	LocatorScrollAttempts prometheus.Histogram
	NavigationTransitions *prometheus.CounterVec // labels: stage

	// Artifact and reconciliation metrics.
	ArtifactsNormalized prometheus.Counter
	ArtifactsMissing    prometheus.Counter
	WeatherFallbacks    prometheus.Counter
	SummaryRows         prometheus.Gauge
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      help("Crawl-and-reconcile passes by outcome."),
		}, []string{"outcome"}),
		RunRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_running",
			Help:      help("1 while a pass is in progress."),
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      help("Duration of each pass stage."),
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      help("Unix time of the last pass that wrote a summary."),
		}),
		LocatorScrollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "locator_scroll_attempts",
			Help:      help("Window fetches needed to find the station row."),
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 40},
		}),
		NavigationTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_transitions_total",
			Help:      help("Disclosure navigator state transitions by target stage."),
		}, []string{"stage"}),
		ArtifactsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_normalized_total",
			Help:      help("Downloads renamed to their canonical file name."),
		}),
		ArtifactsMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_missing_total",
			Help:      help("Normalizations that found no candidate download."),
		}),
		WeatherFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fallback_total",
			Help:      help("Weekly windows that borrowed rows from the prior month."),
		}),
		SummaryRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "summary_rows",
			Help:      help("Rows in the last weekly summary."),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Runs,
		m.RunRunning,
		m.StageDuration,
		m.LastSuccess,
		m.LocatorScrollAttempts,
		m.NavigationTransitions,
		m.ArtifactsNormalized,
		m.ArtifactsMissing,
		m.WeatherFallbacks,
		m.SummaryRows,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
