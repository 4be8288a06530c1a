package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track request patterns of the ledger API.
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Ledger metrics track fetch-health and delivery bookkeeping.
var (
	// AttemptsRecordedTotal counts fetch attempts stored, by attempt status
	AttemptsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_attempts_recorded_total",
			Help: "Total number of fetch attempts recorded",
		},
		[]string{"status"},
	)

	// FailureThresholdChecksTotal counts threshold checks by result (past, healthy, no_failures)
	FailureThresholdChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_failure_threshold_checks_total",
			Help: "Total number of failure threshold checks",
		},
		[]string{"result"},
	)

	// DeliveryRecordsStoredTotal counts delivery records stored, by delivery status
	DeliveryRecordsStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_delivery_records_stored_total",
			Help: "Total number of delivery records stored",
		},
		[]string{"status"},
	)

	// DeliveryStatusUpdatesTotal counts finalization attempts by target status and result
	DeliveryStatusUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_delivery_status_updates_total",
			Help: "Total number of delivery status updates",
		},
		[]string{"status", "result"}, // result: updated, unchanged, not_found, invalid_transition, error
	)

	// QuotaCountDuration measures how long quota counts take, by scope (feed, medium)
	QuotaCountDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_quota_count_duration_seconds",
			Help:    "Time taken to count deliveries within a window",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"scope"},
	)

	// DeliveryPendingStale tracks records stuck in pending-delivery past the stale age
	DeliveryPendingStale = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_delivery_pending_stale",
			Help: "Number of delivery records still pending past the stale age",
		},
	)
)

// Database metrics track database performance.
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsOpen tracks open database connections
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of open database connections",
		},
	)

	// DBConnectionsInUse tracks database connections currently in use
	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of database connections in use",
		},
	)

	// CircuitBreakerState exposes breaker state: 0 closed, 1 half-open, 2 open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQuery records the duration of a database operation, e.g. "attempt_latest".
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
