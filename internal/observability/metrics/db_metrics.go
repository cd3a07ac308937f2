package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "scada_connections_total",
			Help: "Configured SCADA connections",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM scada_connections")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "scada_connections_error",
			Help: "SCADA connections currently in error",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM scada_connections WHERE status = 'error'")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "tag_mappings_total",
			Help: "Configured tag mappings",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM tag_mappings")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
