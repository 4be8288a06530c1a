// Package config holds validators, a fallback helper and configuration metrics
// shared by the ledger's config loaders.
package config

import (
	"cmp"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts the standard five-field form "minute hour dom month dow"
// plus descriptors such as "@every 5m" and "@hourly".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCronSchedule parses schedule with the parser the ledger scheduler uses.
func ParseCronSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("invalid cron schedule: cannot be empty")
	}
	s, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return s, nil
}

// ValidateCronSchedule validates a cron expression.
//
// Example:
//
//	ValidateCronSchedule("*/5 * * * *") // every five minutes
//	ValidateCronSchedule("@every 10m")
func ValidateCronSchedule(schedule string) error {
	_, err := ParseCronSchedule(schedule)
	return err
}

// ValidateTimezone checks that timezone is a loadable IANA name such as "UTC" or "Asia/Tokyo".
// Loading depends on tzdata being available in the image.
func ValidateTimezone(timezone string) error {
	if timezone == "" {
		return fmt.Errorf("invalid timezone: cannot be empty")
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", timezone, err)
	}
	return nil
}

// InRange checks lo <= value <= hi.
func InRange[T cmp.Ordered](value, lo, hi T) error {
	switch {
	case lo > hi:
		return fmt.Errorf("empty range [%v, %v]", lo, hi)
	case value < lo, value > hi:
		return fmt.Errorf("value %v is outside [%v, %v]", value, lo, hi)
	}
	return nil
}
