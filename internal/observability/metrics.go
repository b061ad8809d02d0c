package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// simulation service.
type Metrics struct {
	SimulationsRun     *prometheus.CounterVec // labels: mode={manual,projection}, outcome={ok,error}
	SimulationDuration prometheus.Histogram
	SimulationSLRMean  prometheus.Histogram

	FloodEvaluations prometheus.Counter
	SnapshotsActive  prometheus.Gauge
	GeoidFallback    prometheus.Gauge

	RunsPublished prometheus.Counter
	RunsPruned    prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.SimulationsRun,
		m.SimulationDuration,
		m.SimulationSLRMean,
		m.FloodEvaluations,
		m.SnapshotsActive,
		m.GeoidFallback,
		m.RunsPublished,
		m.RunsPruned,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SimulationsRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodline",
			Name:      "simulations_run_total",
			Help:      "Completed simulation runs by mode and outcome.",
		}, []string{"mode", "outcome"}),
		SimulationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodline",
			Name:      "simulation_duration_seconds",
			Help:      "Wall time of one Monte Carlo run.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SimulationSLRMean: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodline",
			Name:      "simulation_slr_mean_meters",
			Help:      "Mean sea-level rise per completed run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5},
		}),
		FloodEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodline",
			Name:      "flood_evaluations_total",
			Help:      "Per-point flood decisions served.",
		}),
		SnapshotsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floodline",
			Name:      "snapshots_active",
			Help:      "Live flood snapshots (0, 1, or 2).",
		}),
		GeoidFallback: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floodline",
			Name:      "geoid_fallback",
			Help:      "1 when running in ellipsoid-only mode, 0 when a geoid grid is loaded.",
		}),
		RunsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodline",
			Name:      "runs_published_total",
			Help:      "Run-completed events written to Kafka.",
		}),
		RunsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodline",
			Name:      "runs_pruned_total",
			Help:      "Persisted runs removed by retention pruning.",
		}),
	}
}
