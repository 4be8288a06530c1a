// Package delivery keeps the per-medium delivery ledger and answers quota
// questions over it.
package delivery

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"feed-ledger/internal/domain/entity"
	"feed-ledger/internal/observability/metrics"
	"feed-ledger/internal/observability/tracing"
	"feed-ledger/internal/repository"
	"feed-ledger/pkg/clock"
)

// MaxBatchSize bounds the number of states accepted by one Store call.
const MaxBatchSize = 1000

// Service implements the delivery ledger and the quota counter.
type Service struct {
	repo  repository.DeliveryRecordRepository
	clock clock.Clock
}

// NewService wires the service. A nil clock uses the system clock.
func NewService(repo repository.DeliveryRecordRepository, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{repo: repo, clock: clk}
}

// Store appends one record per state for feedID in a single transaction.
// Ids are kept verbatim; an id that repeats within the batch or is already
// stored fails the whole call with entity.ErrConflict. A parent must name a
// record stored earlier or one that appears before it in states.
func (s *Service) Store(ctx context.Context, feedID string, states []entity.DeliveryState) (err error) {
	ctx, span := tracing.StartSpan(ctx, "delivery.Store",
		attribute.String("feed.id", feedID),
		attribute.Int("delivery.batch_size", len(states)),
	)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	if feedID == "" {
		return &entity.ValidationError{Field: "feedId", Message: "is required"}
	}
	if len(states) == 0 {
		return nil
	}
	if len(states) > MaxBatchSize {
		return &entity.ValidationError{Field: "states", Message: fmt.Sprintf("must not exceed %d entries", MaxBatchSize)}
	}

	seen := make(map[string]bool, len(states))
	var lookup []string
	for i, st := range states {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("states[%d]: %w", i, err)
		}
		if seen[st.ID] {
			return fmt.Errorf("states[%d]: duplicate id %q: %w", i, st.ID, entity.ErrConflict)
		}
		seen[st.ID] = true
		lookup = append(lookup, st.ID)
	}

	// Parents outside the batch, or later in it, must already be stored.
	earlier := make(map[string]bool, len(states))
	external := make(map[string]int)
	for i, st := range states {
		if st.Parent != "" && !earlier[st.Parent] {
			if _, ok := external[st.Parent]; !ok {
				external[st.Parent] = i
				if !seen[st.Parent] {
					lookup = append(lookup, st.Parent)
				}
			}
		}
		earlier[st.ID] = true
	}

	existing, err := s.repo.ExistingIDs(ctx, lookup)
	if err != nil {
		return entity.WrapStorage("store deliveries", err)
	}
	for i, st := range states {
		if existing[st.ID] {
			return fmt.Errorf("states[%d]: id %q already stored: %w", i, st.ID, entity.ErrConflict)
		}
	}
	for parent, i := range external {
		if !existing[parent] {
			return fmt.Errorf("states[%d]: %w", i, &entity.ValidationError{
				Field:   "parent",
				Message: fmt.Sprintf("%q does not reference an earlier delivery record", parent),
			})
		}
	}

	now := s.clock.Now()
	records := make([]*entity.DeliveryRecord, len(states))
	for i, st := range states {
		records[i] = st.ToRecord(feedID, now)
	}

	if err := s.repo.CreateBatch(ctx, records); err != nil {
		return entity.WrapStorage("store deliveries", err)
	}
	for _, r := range records {
		metrics.RecordDeliveryStored(string(r.Status))
	}
	return nil
}

// UpdateDeliveryStatus finalizes a pending record with patch and returns the
// merged record. Finalizing an already terminal record returns it unchanged
// when the patch matches what is stored, and entity.ErrInvalidTransition otherwise.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, id string, patch entity.DeliveryStatusPatch) (rec *entity.DeliveryRecord, err error) {
	ctx, span := tracing.StartSpan(ctx, "delivery.UpdateDeliveryStatus",
		attribute.String("delivery.id", id),
		attribute.String("delivery.status", string(patch.Status)),
	)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	if id == "" {
		return nil, &entity.ValidationError{Field: "id", Message: "is required"}
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.repo.FinalizePending(ctx, id, patch)
	if err != nil {
		metrics.RecordStatusUpdate(string(patch.Status), metrics.UpdateResultError)
		return nil, entity.WrapStorage("update delivery status", err)
	}
	if updated != nil {
		metrics.RecordStatusUpdate(string(patch.Status), metrics.UpdateResultUpdated)
		return updated, nil
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		metrics.RecordStatusUpdate(string(patch.Status), metrics.UpdateResultError)
		return nil, entity.WrapStorage("update delivery status", err)
	}
	switch {
	case current == nil:
		metrics.RecordStatusUpdate(string(patch.Status), metrics.UpdateResultNotFound)
		return nil, fmt.Errorf("delivery record %q: %w", id, entity.ErrNotFound)
	case current.Status.IsTerminal() && current.MatchedBy(patch):
		metrics.RecordStatusUpdate(string(patch.Status), metrics.UpdateResultUnchanged)
		return current, nil
	default:
		metrics.RecordStatusUpdate(string(patch.Status), metrics.UpdateResultInvalidTransition)
		return nil, fmt.Errorf("delivery record %q is %s: %w", id, current.Status, entity.ErrInvalidTransition)
	}
}

// GetDeliveryRecord returns the record stored under id.
func (s *Service) GetDeliveryRecord(ctx context.Context, id string) (*entity.DeliveryRecord, error) {
	if id == "" {
		return nil, &entity.ValidationError{Field: "id", Message: "is required"}
	}

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, entity.WrapStorage("get delivery record", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("delivery record %q: %w", id, entity.ErrNotFound)
	}
	return rec, nil
}

// CountDeliveriesInPastTimeframe counts distinct articles that consumed quota
// (sent or rejected) within the trailing window, scoped by feed or by medium.
func (s *Service) CountDeliveriesInPastTimeframe(ctx context.Context, filter repository.DeliveryCountFilter, window time.Duration) (n int64, err error) {
	scope, err := validateCountFilter(filter)
	if err != nil {
		return 0, err
	}
	if window <= 0 {
		return 0, &entity.ValidationError{Field: "window", Message: "must be positive"}
	}

	ctx, span := tracing.StartSpan(ctx, "delivery.CountDeliveriesInPastTimeframe",
		attribute.String("quota.scope", scope),
		attribute.Int64("quota.window_seconds", int64(window/time.Second)),
	)
	defer func() {
		span.SetAttributes(attribute.Int64("quota.count", n))
		tracing.RecordError(span, err)
		span.End()
	}()

	start := time.Now()
	n, err = s.repo.CountDistinctArticles(ctx, filter, s.clock.Now().Add(-window))
	if err != nil {
		return 0, entity.WrapStorage("count deliveries", err)
	}
	metrics.RecordQuotaCount(scope, time.Since(start))
	return n, nil
}

// RemainingQuota returns how many more distinct articles fit under limit in the window.
func (s *Service) RemainingQuota(ctx context.Context, filter repository.DeliveryCountFilter, window time.Duration, limit int64) (int64, error) {
	if err := validateLimit(limit); err != nil {
		return 0, err
	}
	used, err := s.CountDeliveriesInPastTimeframe(ctx, filter, window)
	if err != nil {
		return 0, err
	}
	return Remaining(used, limit)
}

// Remaining is what is left of limit once used articles were counted.
func Remaining(used, limit int64) (int64, error) {
	if err := validateLimit(limit); err != nil {
		return 0, err
	}
	return max(limit-used, 0), nil
}

func validateLimit(limit int64) error {
	if limit < 0 {
		return &entity.ValidationError{Field: "limit", Message: "must not be negative"}
	}
	return nil
}

// CountStalePending counts records still pending that were created more than olderThan ago.
func (s *Service) CountStalePending(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, &entity.ValidationError{Field: "olderThan", Message: "must be positive"}
	}
	n, err := s.repo.CountPendingBefore(ctx, s.clock.Now().Add(-olderThan))
	if err != nil {
		return 0, entity.WrapStorage("count stale pending", err)
	}
	return n, nil
}

func validateCountFilter(f repository.DeliveryCountFilter) (string, error) {
	switch {
	case f.FeedID != "" && f.MediumID != "":
		return "", &entity.ValidationError{Field: "filter", Message: "set either feedId or mediumId, not both"}
	case f.FeedID != "":
		return "feed", nil
	case f.MediumID != "":
		return "medium", nil
	default:
		return "", &entity.ValidationError{Field: "filter", Message: "feedId or mediumId is required"}
	}
}
