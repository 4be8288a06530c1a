// Package metrics provides the Prometheus metrics of the ledger service.
//
// All metrics are registered with the Prometheus default registry through promauto
// and exposed on the metrics server's /metrics endpoint. Callers record through the
// Record* helpers rather than touching the collectors directly.
//
// Example usage:
//
//	start := time.Now()
//	count, err := repo.CountDistinctArticles(ctx, filter, since)
//	metrics.RecordQuotaCount("feed", time.Since(start))
package metrics
