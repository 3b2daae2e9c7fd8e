package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "garage_sessions_created_total",
			Help: "Vehicle check-ins recorded",
		},
	)

	JobCardsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "garage_job_cards_completed_total",
			Help: "Job cards that reached the completed state",
		},
	)

	PaymentsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garage_payments_recorded_total",
			Help: "Payments recorded by method",
		},
		[]string{"method"},
	)

	InvoicesOverdueSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "garage_invoices_overdue_swept_total",
			Help: "Invoices flipped to overdue by the nightly sweep",
		},
	)
)
