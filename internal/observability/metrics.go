package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters and gauges recorded by a sync run.
type Metrics struct {
	FetchDuration *prometheus.HistogramVec // labels: endpoint
	FetchErrors   *prometheus.CounterVec   // labels: endpoint
	SnapshotBytes *prometheus.GaugeVec     // labels: endpoint
	RowsLoaded    *prometheus.CounterVec   // labels: table
	TableRows     *prometheus.GaugeVec     // labels: table
	LastSuccess   prometheus.Gauge
	SyncDuration  prometheus.Gauge
}

// NewMetrics creates the sync metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parksync",
			Name:      "fetch_duration_seconds",
			Help:      "NPS API request duration by endpoint.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parksync",
			Name:      "fetch_errors_total",
			Help:      "Failed NPS API fetches by endpoint.",
		}, []string{"endpoint"}),
		SnapshotBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parksync",
			Name:      "snapshot_bytes",
			Help:      "Size of the last raw snapshot written per endpoint.",
		}, []string{"endpoint"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parksync",
			Name:      "rows_loaded_total",
			Help:      "Rows upserted by table.",
		}, []string{"table"}),
		TableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parksync",
			Name:      "table_rows",
			Help:      "Row count per table after the last load.",
		}, []string{"table"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parksync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync.",
		}),
		SyncDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parksync",
			Name:      "sync_duration_seconds",
			Help:      "Wall time of the last sync run.",
		}),
	}

	reg.MustRegister(
		m.FetchDuration,
		m.FetchErrors,
		m.SnapshotBytes,
		m.RowsLoaded,
		m.TableRows,
		m.LastSuccess,
		m.SyncDuration,
	)
	return m
}

// WriteTextfile dumps everything in g to path in the Prometheus text format,
// for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
