// Package observability groups the ledger's logging, metrics and tracing.
//
// Subpackages:
//   - logging: slog loggers carrying request and trace IDs
//   - metrics: Prometheus collectors and Record* helpers
//   - tracing: OpenTelemetry provider setup, spans and HTTP middleware
package observability
