package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "flightline_"

	resultSuccess = "success"
	resultError   = "error"
	resultEmpty   = "empty"
)

// Result labels for the Observe helpers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultEmpty   = resultEmpty
)

var (
	registerOnce sync.Once

	checkinCalculateTotal   *prometheus.CounterVec
	checkinCalculateLatency *prometheus.HistogramVec
	checkinApproveTotal     *prometheus.CounterVec
	checkinApproveLatency   *prometheus.HistogramVec

	draftExportTotal   *prometheus.CounterVec
	draftExportLatency *prometheus.HistogramVec

	invoicesCreated prometheus.Counter
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		checkinCalculateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "checkin_calculate_total",
				Help: "Total draft calculations by result",
			},
			[]string{"result"},
		)
		checkinCalculateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "checkin_calculate_latency_seconds",
				Help:    "Draft calculation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		checkinApproveTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "checkin_approve_total",
				Help: "Total check-in approvals by result",
			},
			[]string{"result"},
		)
		checkinApproveLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "checkin_approve_latency_seconds",
				Help:    "Check-in approval latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		draftExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "draft_export_total",
				Help: "Total draft exports by format and result",
			},
			[]string{"format", "result"},
		)
		draftExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "draft_export_latency_seconds",
				Help:    "Draft export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		invoicesCreated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoices_created_total",
				Help: "Total invoices created from approved check-ins",
			},
		)

		prometheus.MustRegister(
			checkinCalculateTotal,
			checkinCalculateLatency,
			checkinApproveTotal,
			checkinApproveLatency,
			draftExportTotal,
			draftExportLatency,
			invoicesCreated,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveCheckInCalculate records calculate latency and result.
func ObserveCheckInCalculate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if checkinCalculateTotal != nil {
		checkinCalculateTotal.WithLabelValues(result).Inc()
	}
	if checkinCalculateLatency != nil {
		checkinCalculateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveCheckInApprove records approval latency and result.
func ObserveCheckInApprove(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if checkinApproveTotal != nil {
		checkinApproveTotal.WithLabelValues(result).Inc()
	}
	if checkinApproveLatency != nil {
		checkinApproveLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveDraftExport records export latency by format and result.
func ObserveDraftExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if draftExportTotal != nil {
		draftExportTotal.WithLabelValues(format, result).Inc()
	}
	if draftExportLatency != nil {
		draftExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncInvoiceCreated increments the created invoice counter.
func IncInvoiceCreated() {
	if invoicesCreated != nil {
		invoicesCreated.Inc()
	}
}

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "bookings_awaiting_checkin",
			Help: "Completed bookings not yet approved",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM bookings WHERE status = 'complete'")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "invoices_issued_count",
			Help: "Issued invoices",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM invoices WHERE status = 'issued'")
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
