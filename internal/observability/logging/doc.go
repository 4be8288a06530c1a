// Package logging provides structured logging on top of log/slog.
//
// Loggers are JSON by default and can be switched to text for local runs.
// Request-scoped loggers carry the request ID and, when a span is active,
// the trace ID so log lines can be joined with traces.
//
// Example usage:
//
//	logger := logging.NewLogger(logging.Config{Level: "info"})
//	slog.SetDefault(logger)
//
//	func handle(ctx context.Context) {
//	    logging.FromContext(ctx).Info("delivery finalized", slog.String("id", id))
//	}
package logging
