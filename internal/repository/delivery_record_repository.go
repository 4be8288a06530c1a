package repository

import (
	"context"
	"time"

	"feed-ledger/internal/domain/entity"
)

// DeliveryCountFilter scopes a quota count. Exactly one of FeedID and MediumID is set.
type DeliveryCountFilter struct {
	FeedID   string
	MediumID string
}

type DeliveryRecordRepository interface {
	// CreateBatch inserts all records in one transaction. A duplicate id fails the whole batch
	// with entity.ErrConflict.
	CreateBatch(ctx context.Context, records []*entity.DeliveryRecord) error
	Get(ctx context.Context, id string) (*entity.DeliveryRecord, error)
	// ExistingIDs returns the subset of ids that are already stored.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	// FinalizePending applies patch only if the record is still pending-delivery.
	// It returns nil, nil when no pending record with that id exists.
	FinalizePending(ctx context.Context, id string, patch entity.DeliveryStatusPatch) (*entity.DeliveryRecord, error)
	// CountDistinctArticles counts distinct article hashes among countable records
	// created at or after since.
	CountDistinctArticles(ctx context.Context, filter DeliveryCountFilter, since time.Time) (int64, error)
	// CountPendingBefore counts records still pending-delivery that were created before t.
	CountPendingBefore(ctx context.Context, t time.Time) (int64, error)
}
