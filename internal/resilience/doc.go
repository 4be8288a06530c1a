// Package resilience groups the fault tolerance helpers of the ledger service.
//
//   - circuitbreaker: a gobreaker wrapper and a *sql.DB decorator that stops
//     hammering an unavailable database
//   - retry: capped exponential backoff with jitter for transient database errors
//
// Usage Example:
//
//	conn := circuitbreaker.NewDBCircuitBreaker(sqlDB)
//	err := retry.Startup().Run(ctx, "ping", func(ctx context.Context) error {
//	    return conn.PingContext(ctx)
//	})
package resilience
