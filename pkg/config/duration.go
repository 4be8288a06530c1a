package config

import (
	"fmt"
	"time"
)

// DurationCheck validates a duration setting after it was read from the environment.
type DurationCheck func(time.Duration) error

// Positive rejects zero and negative durations.
func Positive(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	return nil
}

// Within accepts durations in [lo, hi]. A reversed range rejects everything.
func Within(lo, hi time.Duration) DurationCheck {
	return func(d time.Duration) error {
		switch {
		case lo > hi:
			return fmt.Errorf("empty range [%s, %s]", lo, hi)
		case d < lo, d > hi:
			return fmt.Errorf("%s is outside [%s, %s]", d, lo, hi)
		}
		return nil
	}
}
