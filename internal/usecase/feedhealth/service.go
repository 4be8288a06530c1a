// Package feedhealth records fetch attempts per feed URL and derives from them
// whether a feed has been failing long enough to be suspended.
package feedhealth

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"feed-ledger/internal/domain/entity"
	"feed-ledger/internal/observability/metrics"
	"feed-ledger/internal/observability/tracing"
	"feed-ledger/internal/repository"
	"feed-ledger/pkg/clock"
)

// DefaultFailureThreshold is how long a failure streak may last before a feed
// is considered past the threshold.
const DefaultFailureThreshold = 36 * time.Hour

// Service implements the attempt store and the failure streak detector.
type Service struct {
	repo             repository.AttemptRepository
	clock            clock.Clock
	defaultThreshold time.Duration
}

// NewService wires the service. A nil clock uses the system clock and a
// non-positive threshold uses DefaultFailureThreshold.
func NewService(repo repository.AttemptRepository, clk clock.Clock, defaultThreshold time.Duration) *Service {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if defaultThreshold <= 0 {
		defaultThreshold = DefaultFailureThreshold
	}
	return &Service{repo: repo, clock: clk, defaultThreshold: defaultThreshold}
}

// DefaultThreshold returns the threshold used when callers pass none.
func (s *Service) DefaultThreshold() time.Duration {
	return s.defaultThreshold
}

// RecordAttempt appends one attempt for url, stamped with the current time,
// and returns its id. response may be nil.
func (s *Service) RecordAttempt(ctx context.Context, url string, status entity.AttemptStatus, response *entity.Response) (id int64, err error) {
	ctx, span := tracing.StartSpan(ctx, "feedhealth.RecordAttempt",
		attribute.String("feed.url", url),
		attribute.String("attempt.status", string(status)),
	)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	attempt := &entity.Attempt{
		URL:       url,
		Status:    status,
		CreatedAt: s.clock.Now(),
	}
	if response != nil {
		r := *response
		attempt.Response = &r
	}
	if err := attempt.Validate(); err != nil {
		return 0, err
	}

	if err := s.repo.Create(ctx, attempt); err != nil {
		return 0, entity.WrapStorage("record attempt", err)
	}
	metrics.RecordAttempt(string(status))
	return attempt.ID, nil
}

// RequestExistsAfterTime reports whether an attempt matching filter was made strictly after t.
func (s *Service) RequestExistsAfterTime(ctx context.Context, filter repository.AttemptFilter, t time.Time) (bool, error) {
	if filter.URL == "" {
		return false, &entity.ValidationError{Field: "url", Message: "is required"}
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return false, &entity.ValidationError{Field: "status", Message: "invalid attempt status " + string(filter.Status)}
	}

	exists, err := s.repo.ExistsAfter(ctx, filter, t)
	if err != nil {
		return false, entity.WrapStorage("request exists after time", err)
	}
	return exists, nil
}

// GetLatestRequest returns the newest attempt for url with its response, or nil.
func (s *Service) GetLatestRequest(ctx context.Context, url string) (*entity.Attempt, error) {
	if url == "" {
		return nil, &entity.ValidationError{Field: "url", Message: "is required"}
	}

	attempt, err := s.repo.Latest(ctx, url)
	if err != nil {
		return nil, entity.WrapStorage("get latest request", err)
	}
	return attempt, nil
}

// GetEarliestFailedAttempt returns the first attempt of the current failure streak:
// the oldest FAILED or FETCH_ERROR attempt ordered after the latest OK attempt,
// or after the beginning of history when the feed never succeeded. It returns nil
// when the feed is not in a streak.
func (s *Service) GetEarliestFailedAttempt(ctx context.Context, url string) (*entity.Attempt, error) {
	if url == "" {
		return nil, &entity.ValidationError{Field: "url", Message: "is required"}
	}

	boundary, err := s.repo.LatestWithStatus(ctx, url, entity.AttemptStatusOK)
	if err != nil {
		return nil, entity.WrapStorage("get earliest failed attempt", err)
	}
	earliest, err := s.repo.EarliestFailureAfter(ctx, url, boundary)
	if err != nil {
		return nil, entity.WrapStorage("get earliest failed attempt", err)
	}
	return earliest, nil
}

// IsPastFailureThreshold reports whether url is currently failing and its streak
// started at least threshold ago. A non-positive threshold uses the default.
func (s *Service) IsPastFailureThreshold(ctx context.Context, url string, threshold time.Duration) (past bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "feedhealth.IsPastFailureThreshold", attribute.String("feed.url", url))
	defer func() {
		span.SetAttributes(attribute.Bool("feed.past_threshold", past))
		tracing.RecordError(span, err)
		span.End()
	}()

	if threshold <= 0 {
		threshold = s.defaultThreshold
	}

	latest, err := s.GetLatestRequest(ctx, url)
	if err != nil {
		return false, err
	}
	if latest == nil || !latest.Status.IsFailure() {
		metrics.RecordThresholdCheck(metrics.ThresholdResultNoFailures)
		return false, nil
	}

	earliest, err := s.GetEarliestFailedAttempt(ctx, url)
	if err != nil {
		return false, err
	}
	if earliest == nil {
		metrics.RecordThresholdCheck(metrics.ThresholdResultNoFailures)
		return false, nil
	}

	if s.clock.Now().Sub(earliest.CreatedAt) < threshold {
		metrics.RecordThresholdCheck(metrics.ThresholdResultHealthy)
		return false, nil
	}
	metrics.RecordThresholdCheck(metrics.ThresholdResultPast)
	return true, nil
}
