package repository

import (
	"context"
	"time"

	"feed-ledger/internal/domain/entity"
)

// AttemptFilter narrows attempt lookups to one URL and, optionally, one status.
type AttemptFilter struct {
	URL    string
	Status entity.AttemptStatus
}

// AttemptRepository persists fetch attempts and answers ordered queries over them.
// Every ordered query uses (created_at, id) so that equal timestamps stay deterministic.
type AttemptRepository interface {
	// Create inserts the attempt and its response atomically, filling in the assigned IDs.
	Create(ctx context.Context, attempt *entity.Attempt) error
	// ExistsAfter reports whether an attempt matching filter was created strictly after t.
	ExistsAfter(ctx context.Context, filter AttemptFilter, t time.Time) (bool, error)
	// Latest returns the newest attempt for url with its response, or nil when none exist.
	Latest(ctx context.Context, url string) (*entity.Attempt, error)
	// LatestWithStatus returns the newest attempt for url in the given status, or nil.
	LatestWithStatus(ctx context.Context, url string, status entity.AttemptStatus) (*entity.Attempt, error)
	// EarliestFailureAfter returns the oldest failed attempt for url ordered strictly after
	// the given attempt, or the oldest failed attempt overall when after is nil.
	EarliestFailureAfter(ctx context.Context, url string, after *entity.Attempt) (*entity.Attempt, error)
}
