package attempt

import (
	"time"

	"feed-ledger/internal/domain/entity"
)

// parseTime accepts RFC 3339 with optional fractional seconds.
func parseTime(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, &entity.ValidationError{Field: field, Message: "is required"}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, &entity.ValidationError{Field: field, Message: "must be an RFC 3339 timestamp"}
	}
	return t, nil
}

// parseDuration returns 0 for an empty value.
func parseDuration(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, &entity.ValidationError{Field: field, Message: "must be a positive duration such as 36h"}
	}
	return d, nil
}
