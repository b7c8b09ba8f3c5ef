package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agent_precip_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL run.
type Metrics struct {
	BlocksProcessed prometheus.Counter
	RowsEmitted     prometheus.Counter
	BlocksDropped   *prometheus.CounterVec // labels: reason={missing_field,invalid_date,unknown_country,no_station,no_observation}
	LookupErrors    *prometheus.CounterVec // labels: service={station,climate}
	RunActive       prometheus.Gauge

	// Per-file metrics.
	FilesProcessed *prometheus.CounterVec // labels: outcome={loaded,missing,unreadable}
	FileDuration   prometheus.Histogram
	TableRows      prometheus.Histogram

	// Meteostat metrics.
	ClimateCache         *prometheus.CounterVec   // labels: result={hit,miss}
	MeteostatAPIDuration *prometheus.HistogramVec // labels: endpoint={stations,monthly}
	MeteostatRetries     *prometheus.CounterVec   // labels: endpoint={stations,monthly}
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		BlocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_processed_total",
			Help:      help("Total biosample blocks dispatched for enrichment."),
		}),
		RowsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_emitted_total",
			Help:      help("Total enriched rows added to output tables."),
		}),
		BlocksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_dropped_total",
			Help:      help("Biosample blocks filtered out, by rejection reason."),
		}, []string{"reason"}),
		LookupErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_errors_total",
			Help:      help("Station or climate lookups that failed after retries."),
		}, []string{"service"}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_active",
			Help:      help("1 while a batch run is in progress, 0 otherwise."),
		}),
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      help("Agent files processed, by outcome."),
		}, []string{"outcome"}),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      help("Duration of processing and loading one agent file."),
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		TableRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      help("Number of rows per output table."),
			Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		}),
		ClimateCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "climate_cache_total",
			Help:      help("Climate cache lookups by result."),
		}, []string{"result"}),
		MeteostatAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "meteostat_api_duration_seconds",
			Help:      help("Meteostat request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		MeteostatRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meteostat_retries_total",
			Help:      help("Meteostat requests retried after a transient failure."),
		}, []string{"endpoint"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.BlocksProcessed,
		m.RowsEmitted,
		m.BlocksDropped,
		m.LookupErrors,
		m.RunActive,
		m.FilesProcessed,
		m.FileDuration,
		m.TableRows,
		m.ClimateCache,
		m.MeteostatAPIDuration,
		m.MeteostatRetries,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
