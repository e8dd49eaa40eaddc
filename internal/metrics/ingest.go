package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion pipeline Prometheus metrics.
var (
	IngestTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "ingest_tasks_total",
			Help:      "Total ingestion tasks by outcome",
		},
		[]string{"status"}, // "ready" / "failed"
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperdex",
			Name:      "ingest_duration_seconds",
			Help:      "End-to-end ingestion pipeline duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	IngestQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "paperdex",
			Name:      "ingest_queue_depth",
			Help:      "Number of queued ingestion tasks",
		},
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "ingest_chunks_total",
			Help:      "Total chunks written to the vector store",
		},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers Prometheus ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestTasksTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(IngestQueueDepth)
	prometheus.MustRegister(IngestChunksTotal)
	ingestMetricsRegistered = true
}
