package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dataset pipeline.
type Metrics struct {
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error,skipped}
	FetchDuration prometheus.Histogram

	FilesParsed  prometheus.Counter
	FilesSkipped prometheus.Counter
	RowsIngested prometheus.Counter

	// Lossy-fill fallback counters.
	CountDefaults prometheus.Counter
	DateFallbacks prometheus.Counter
	GeoDropped    prometheus.Counter

	CacheLoads        *prometheus.CounterVec // labels: kind={raw,by_country,by_date}, result={hit,miss}
	AggregateDuration prometheus.Histogram

	DatasetReady         prometheus.Gauge
	ObservationsExported prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_data",
			Name:      "fetch_requests_total",
			Help:      "Dataset fetch attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covid_data",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of dataset download and unpacking.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FilesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_data",
			Name:      "files_parsed_total",
			Help:      "CSV files parsed successfully.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_data",
			Name:      "files_skipped_total",
			Help:      "CSV files skipped as unreadable.",
		}),
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_data",
			Name:      "rows_ingested_total",
			Help:      "Raw rows read from the CSV corpus.",
		}),
		CountDefaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_data",
			Name:      "count_defaults_total",
			Help:      "Count values defaulted to zero during normalization.",
		}),
		DateFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_data",
			Name:      "date_fallbacks_total",
			Help:      "Date values replaced by the absent-date sentinel.",
		}),
		GeoDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_data",
			Name:      "geo_dropped_total",
			Help:      "Coordinate values dropped as unparseable.",
		}),
		CacheLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_data",
			Name:      "cache_loads_total",
			Help:      "Cache slot reads by kind and result.",
		}, []string{"kind", "result"}),
		AggregateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covid_data",
			Name:      "aggregate_duration_seconds",
			Help:      "Duration of aggregate computation on cache misses.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		DatasetReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_data",
			Name:      "dataset_ready",
			Help:      "1 once the normalized dataset is loaded, 0 before.",
		}),
		ObservationsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_data",
			Name:      "observations_exported_total",
			Help:      "Normalized observations published to the export sink.",
		}),
	}

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.FilesParsed,
		m.FilesSkipped,
		m.RowsIngested,
		m.CountDefaults,
		m.DateFallbacks,
		m.GeoDropped,
		m.CacheLoads,
		m.AggregateDuration,
		m.DatasetReady,
		m.ObservationsExported,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FetchRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_data", Name: "fetch_requests_total"}, []string{"outcome"}),
		FetchDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "covid_data", Name: "fetch_duration_seconds"}),
		FilesParsed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "covid_data", Name: "files_parsed_total"}),
		FilesSkipped:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "covid_data", Name: "files_skipped_total"}),
		RowsIngested:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "covid_data", Name: "rows_ingested_total"}),
		CountDefaults:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "covid_data", Name: "count_defaults_total"}),
		DateFallbacks:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "covid_data", Name: "date_fallbacks_total"}),
		GeoDropped:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "covid_data", Name: "geo_dropped_total"}),
		CacheLoads:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_data", Name: "cache_loads_total"}, []string{"kind", "result"}),
		AggregateDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "covid_data", Name: "aggregate_duration_seconds"}),
		DatasetReady:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "covid_data", Name: "dataset_ready"}),
		ObservationsExported: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "covid_data", Name: "observations_exported_total"}),
	}
}
