package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"feed-ledger/internal/observability/metrics"
)

// StaleJobName is the name the stale pending report is scheduled under.
const StaleJobName = "stale_pending_report"

// StalePendingCounter is the part of the delivery service the report needs.
type StalePendingCounter interface {
	CountStalePending(ctx context.Context, olderThan time.Duration) (int64, error)
}

// StaleReport refreshes the stale pending gauge together with the pool and
// breaker gauges. DB and Breaker are optional.
type StaleReport struct {
	Deliveries StalePendingCounter
	OlderThan  time.Duration
	DB         *sql.DB
	Breaker    interface{ State() gobreaker.State }
	Logger     *slog.Logger
}

// Run is a JobFunc.
func (r *StaleReport) Run(ctx context.Context) error {
	if r.DB != nil {
		metrics.UpdateDBStats(r.DB.Stats())
	}
	if r.Breaker != nil {
		metrics.UpdateCircuitBreakerState("database", int(r.Breaker.State()))
	}

	n, err := r.Deliveries.CountStalePending(ctx, r.OlderThan)
	if err != nil {
		return fmt.Errorf("count stale pending: %w", err)
	}
	metrics.UpdatePendingStale(n)
	if n > 0 && r.Logger != nil {
		r.Logger.Warn("deliveries stuck in pending",
			slog.Int64("count", n),
			slog.Duration("older_than", r.OlderThan))
	}
	return nil
}
