package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// basin rainfall pipeline.
type Metrics struct {
	BasinsPersisted prometheus.Counter
	BasinsSkipped   prometheus.Counter
	RowsReduced     prometheus.Counter
	PipelineRunning prometheus.Gauge

	StationsPerBasin prometheus.Histogram
	BasinDuration    prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		BasinsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin_rain",
			Name:      "basins_persisted_total",
			Help:      "Basins that produced an output series.",
		}),
		BasinsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin_rain",
			Name:      "basins_skipped_total",
			Help:      "Basins that terminated without output (invalid geometry, no stations, no readings, persistence failure).",
		}),
		RowsReduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin_rain",
			Name:      "rows_reduced_total",
			Help:      "Aligned timestamps reduced to a basin value.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "basin_rain",
			Name:      "pipeline_running",
			Help:      "1 while the batch run is active, 0 otherwise.",
		}),
		StationsPerBasin: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "basin_rain",
			Name:      "stations_per_basin",
			Help:      "Stations associated with each processed basin.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		}),
		BasinDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "basin_rain",
			Name:      "basin_processing_duration_seconds",
			Help:      "Duration of one basin's associate-align-average-persist cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	prometheus.MustRegister(
		m.BasinsPersisted,
		m.BasinsSkipped,
		m.RowsReduced,
		m.PipelineRunning,
		m.StationsPerBasin,
		m.BasinDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		BasinsPersisted:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "basin_rain", Name: "basins_persisted_total"}),
		BasinsSkipped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "basin_rain", Name: "basins_skipped_total"}),
		RowsReduced:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "basin_rain", Name: "rows_reduced_total"}),
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "basin_rain", Name: "pipeline_running"}),
		StationsPerBasin: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "basin_rain", Name: "stations_per_basin"}),
		BasinDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "basin_rain", Name: "basin_processing_duration_seconds"}),
	}
}
