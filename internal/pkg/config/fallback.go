package config

import "fmt"

// Fallback is the outcome of validating one configuration field.
type Fallback[T any] struct {
	Value   T
	Applied bool
	Warning string
}

// WithFallback returns value when validate accepts it, and defaultValue with a
// warning otherwise. It never fails: operational knobs degrade to safe defaults
// instead of stopping the process.
//
//	res := WithFallback("stale_check_schedule", cfg.Schedule, "*/5 * * * *", ValidateCronSchedule)
//	if res.Applied {
//	    slog.Warn(res.Warning)
//	}
func WithFallback[T any](field string, value, defaultValue T, validate func(T) error) Fallback[T] {
	if validate == nil {
		return Fallback[T]{Value: value}
	}
	if err := validate(value); err != nil {
		return Fallback[T]{
			Value:   defaultValue,
			Applied: true,
			Warning: fmt.Sprintf("invalid %s=%v: %v, falling back to default %v", field, value, err, defaultValue),
		}
	}
	return Fallback[T]{Value: value}
}
