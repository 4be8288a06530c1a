// Package tracing provides OpenTelemetry tracing for the ledger service.
//
// Init installs a TracerProvider with the configured sampling ratio. Middleware
// opens a server span per HTTP request and returns the trace ID in X-Trace-Id.
// StartSpan is used by the use cases to wrap storage calls.
package tracing
