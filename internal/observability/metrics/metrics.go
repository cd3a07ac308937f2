package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "wellpulse_"

	resultSuccess = "success"
	resultError   = "error"

	readingAccepted   = "accepted"
	readingSuppressed = "suppressed"
	readingUnmapped   = "unmapped"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	connectionCreateTotal   *prometheus.CounterVec
	connectionCreateLatency *prometheus.HistogramVec
	connectionTransitions   *prometheus.CounterVec
	connectionsHealthy      *prometheus.GaugeVec

	tagBatchTotal   *prometheus.CounterVec
	tagBatchLatency *prometheus.HistogramVec
	tagBatchSize    prometheus.Histogram

	readingsTotal *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		connectionCreateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "connection_create_total",
				Help: "Total connection creation workflows by result",
			},
			[]string{"result"},
		)
		connectionCreateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "connection_create_latency_seconds",
				Help:    "Connection creation workflow latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		connectionTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "connection_transitions_total",
				Help: "Total connection state transitions by resulting status",
			},
			[]string{"status"},
		)
		connectionsHealthy = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "connections_health",
				Help: "Connections by health from the periodic sweep",
			},
			[]string{"state"},
		)

		tagBatchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tag_mapping_batch_total",
				Help: "Total tag mapping batch workflows by result",
			},
			[]string{"result"},
		)
		tagBatchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "tag_mapping_batch_latency_seconds",
				Help:    "Tag mapping batch workflow latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		tagBatchSize = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "tag_mapping_batch_size",
				Help:    "Tag mappings per accepted batch",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
		)

		readingsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_total",
				Help: "Total tag readings by disposition",
			},
			[]string{"disposition"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total inventory export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Inventory export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			connectionCreateTotal,
			connectionCreateLatency,
			connectionTransitions,
			connectionsHealthy,
			tagBatchTotal,
			tagBatchLatency,
			tagBatchSize,
			readingsTotal,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// ObserveConnectionCreate records connection creation latency and result.
func ObserveConnectionCreate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if connectionCreateTotal != nil {
		connectionCreateTotal.WithLabelValues(result).Inc()
	}
	if connectionCreateLatency != nil {
		connectionCreateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncConnectionTransition counts a state transition by resulting status.
func IncConnectionTransition(status string) {
	if status == "" {
		status = "unknown"
	}
	if connectionTransitions != nil {
		connectionTransitions.WithLabelValues(status).Inc()
	}
}

// SetConnectionHealth publishes the latest health sweep counts.
func SetConnectionHealth(healthy, unhealthy int) {
	if connectionsHealthy == nil {
		return
	}
	connectionsHealthy.WithLabelValues("healthy").Set(float64(healthy))
	connectionsHealthy.WithLabelValues("unhealthy").Set(float64(unhealthy))
}

// ObserveTagBatch records tag mapping batch latency, result and size.
func ObserveTagBatch(result string, size int, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if tagBatchTotal != nil {
		tagBatchTotal.WithLabelValues(result).Inc()
	}
	if tagBatchLatency != nil {
		tagBatchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if result == resultSuccess && tagBatchSize != nil {
		tagBatchSize.Observe(float64(size))
	}
}

// AddReadings counts processed readings by disposition.
func AddReadings(disposition string, count int) {
	if count <= 0 {
		return
	}
	if disposition == "" {
		disposition = "unknown"
	}
	if readingsTotal != nil {
		readingsTotal.WithLabelValues(disposition).Add(float64(count))
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	ReadingAccepted   = readingAccepted
	ReadingSuppressed = readingSuppressed
	ReadingUnmapped   = readingUnmapped
)
