// Package sqlite implements the ledger repositories on an embedded SQLite database.
// Timestamps are stored as Unix nanoseconds in UTC.
package sqlite

import (
	"database/sql"
	"strings"
	"time"

	"feed-ledger/internal/observability/metrics"
)

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// observe records the duration of a repository call: defer observe("op")().
func observe(operation string) func() {
	start := time.Now()
	return func() { metrics.RecordDBQuery(operation, time.Since(start)) }
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func optionalArg(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
