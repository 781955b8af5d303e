package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func registerDBMetrics(name string, db *sql.DB, logger zerolog.Logger) {
	labels := prometheus.Labels{"db": name}

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        metricPrefix + "db_open_connections",
			Help:        "Open connections in the database pool",
			ConstLabels: labels,
		},
		func() float64 {
			return float64(db.Stats().OpenConnections)
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        metricPrefix + "db_in_use_connections",
			Help:        "Connections currently in use",
			ConstLabels: labels,
		},
		func() float64 {
			return float64(db.Stats().InUse)
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        metricPrefix + "db_up",
			Help:        "1 when the database answers a ping",
			ConstLabels: labels,
		},
		func() float64 {
			if err := db.Ping(); err != nil {
				logger.Warn().Err(err).Str("db", name).Msg("metrics ping failed")
				return 0
			}
			return 1
		},
	))
}
