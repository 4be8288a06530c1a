package metrics

import (
	"database/sql"
	"time"
)

// Threshold check results.
const (
	ThresholdResultPast       = "past"
	ThresholdResultHealthy    = "healthy"
	ThresholdResultNoFailures = "no_failures"
)

// Status update results.
const (
	UpdateResultUpdated           = "updated"
	UpdateResultUnchanged         = "unchanged"
	UpdateResultNotFound          = "not_found"
	UpdateResultInvalidTransition = "invalid_transition"
	UpdateResultError             = "error"
)

// RecordAttempt counts one stored attempt.
func RecordAttempt(status string) {
	AttemptsRecordedTotal.WithLabelValues(status).Inc()
}

// RecordThresholdCheck counts one failure threshold evaluation.
func RecordThresholdCheck(result string) {
	FailureThresholdChecksTotal.WithLabelValues(result).Inc()
}

// RecordDeliveryStored counts one stored delivery record.
func RecordDeliveryStored(status string) {
	DeliveryRecordsStoredTotal.WithLabelValues(status).Inc()
}

// RecordStatusUpdate counts one finalization call.
func RecordStatusUpdate(status, result string) {
	DeliveryStatusUpdatesTotal.WithLabelValues(status, result).Inc()
}

// RecordQuotaCount observes a quota count for scope "feed" or "medium".
func RecordQuotaCount(scope string, duration time.Duration) {
	QuotaCountDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

// UpdatePendingStale sets the stale pending gauge.
func UpdatePendingStale(count int64) {
	DeliveryPendingStale.Set(float64(count))
}

// UpdateDBStats copies connection pool statistics into the pool gauges.
func UpdateDBStats(stats sql.DBStats) {
	DBConnectionsOpen.Set(float64(stats.OpenConnections))
	DBConnectionsInUse.Set(float64(stats.InUse))
}

// UpdateCircuitBreakerState sets the breaker gauge; state follows gobreaker's numbering.
func UpdateCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
