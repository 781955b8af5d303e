package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	metricPrefix = "dashboard_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	tabRefreshTotal     *prometheus.CounterVec
	tabRefreshLatency   *prometheus.HistogramVec
	tabRefreshCollapsed *prometheus.CounterVec
	tabLastSuccess      *prometheus.GaugeVec

	frameTicksTotal *prometheus.CounterVec

	detailRequestsTotal *prometheus.CounterVec
	detailCacheTotal    *prometheus.CounterVec

	sourceFreshnessStatus *prometheus.GaugeVec
	sourceAgeSeconds      *prometheus.GaugeVec

	exportTotal *prometheus.CounterVec
)

// Init registers dashboard metrics and DB pool gauges.
func Init(dbs map[string]*sql.DB, logger zerolog.Logger) {
	registerOnce.Do(func() {
		tabRefreshTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tab_refresh_total",
				Help: "Total tab refreshes by tab, trigger and result",
			},
			[]string{"tab", "trigger", "result"},
		)
		tabRefreshLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "tab_refresh_latency_seconds",
				Help:    "Tab refresh fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tab", "result"},
		)
		tabRefreshCollapsed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tab_refresh_collapsed_total",
				Help: "Refresh triggers folded into an in-flight refresh",
			},
			[]string{"tab"},
		)
		tabLastSuccess = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "tab_last_success_timestamp_seconds",
				Help: "Unix time of the last successful tab refresh",
			},
			[]string{"tab"},
		)

		frameTicksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "frame_ticks_total",
				Help: "Animation frame ticks by tab",
			},
			[]string{"tab"},
		)

		detailRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "detail_requests_total",
				Help: "Detail overlay invocations by outcome",
			},
			[]string{"outcome"},
		)
		detailCacheTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "detail_cache_lookups_total",
				Help: "Region detail cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		)

		sourceFreshnessStatus = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "source_freshness_status",
				Help: "Freshness status per source (0 ok, 1 warning, 2 error, 3 unknown)",
			},
			[]string{"source"},
		)
		sourceAgeSeconds = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "source_age_seconds",
				Help: "Seconds since the source was last updated",
			},
			[]string{"source"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "status_export_total",
				Help: "Status report exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			tabRefreshTotal,
			tabRefreshLatency,
			tabRefreshCollapsed,
			tabLastSuccess,
			frameTicksTotal,
			detailRequestsTotal,
			detailCacheTotal,
			sourceFreshnessStatus,
			sourceAgeSeconds,
			exportTotal,
		)

		for name, db := range dbs {
			if db != nil {
				registerDBMetrics(name, db, logger)
			}
		}
	})
}

// ObserveTabRefresh records a tab refresh outcome.
func ObserveTabRefresh(tab, trigger, result string, duration time.Duration) {
	if tab == "" {
		tab = "unknown"
	}
	if trigger == "" {
		trigger = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if tabRefreshTotal != nil {
		tabRefreshTotal.WithLabelValues(tab, trigger, result).Inc()
	}
	if tabRefreshLatency != nil {
		tabRefreshLatency.WithLabelValues(tab, result).Observe(duration.Seconds())
	}
	if result == resultSuccess && tabLastSuccess != nil {
		tabLastSuccess.WithLabelValues(tab).SetToCurrentTime()
	}
}

// IncTabRefreshCollapsed counts a trigger that joined an in-flight refresh.
func IncTabRefreshCollapsed(tab string) {
	if tabRefreshCollapsed != nil {
		tabRefreshCollapsed.WithLabelValues(tab).Inc()
	}
}

// IncFrameTick counts an animation tick.
func IncFrameTick(tab string) {
	if frameTicksTotal != nil {
		frameTicksTotal.WithLabelValues(tab).Inc()
	}
}

// IncDetailRequest counts a detail controller invocation.
func IncDetailRequest(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if detailRequestsTotal != nil {
		detailRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncDetailCache counts a region detail cache lookup.
func IncDetailCache(hit bool) {
	if detailCacheTotal == nil {
		return
	}
	if hit {
		detailCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	detailCacheTotal.WithLabelValues("miss").Inc()
}

// ObserveSourceFreshness sets freshness gauges for a monitored source.
// A negative age means the source has never reported.
func ObserveSourceFreshness(source string, status int, age time.Duration) {
	if sourceFreshnessStatus != nil {
		sourceFreshnessStatus.WithLabelValues(source).Set(float64(status))
	}
	if sourceAgeSeconds == nil {
		return
	}
	if age < 0 {
		sourceAgeSeconds.DeleteLabelValues(source)
		return
	}
	sourceAgeSeconds.WithLabelValues(source).Set(age.Seconds())
}

// IncStatusExport counts a status report export.
func IncStatusExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
