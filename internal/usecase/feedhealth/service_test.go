package feedhealth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feed-ledger/internal/domain/entity"
	"feed-ledger/internal/repository"
	"feed-ledger/internal/usecase/feedhealth"
	"feed-ledger/pkg/clock"
)

/*──────────────────── in-memory stub ────────────────────*/

// stubRepo keeps attempts in insertion order and answers queries in (CreatedAt, ID) order.
type stubRepo struct {
	attempts []*entity.Attempt
	nextID   int64
	err      error
}

func (s *stubRepo) Create(_ context.Context, a *entity.Attempt) error {
	if s.err != nil {
		return s.err
	}
	s.nextID++
	a.ID = s.nextID
	s.attempts = append(s.attempts, a)
	return nil
}

func (s *stubRepo) ExistsAfter(_ context.Context, f repository.AttemptFilter, t time.Time) (bool, error) {
	for _, a := range s.attempts {
		if a.URL == f.URL && (f.Status == "" || a.Status == f.Status) && a.CreatedAt.After(t) {
			return true, s.err
		}
	}
	return false, s.err
}

func (s *stubRepo) latest(url string, keep func(*entity.Attempt) bool) *entity.Attempt {
	var out *entity.Attempt
	for _, a := range s.attempts {
		if a.URL == url && keep(a) && (out == nil || out.Before(a)) {
			out = a
		}
	}
	return out
}

func (s *stubRepo) Latest(_ context.Context, url string) (*entity.Attempt, error) {
	return s.latest(url, func(*entity.Attempt) bool { return true }), s.err
}

func (s *stubRepo) LatestWithStatus(_ context.Context, url string, status entity.AttemptStatus) (*entity.Attempt, error) {
	return s.latest(url, func(a *entity.Attempt) bool { return a.Status == status }), s.err
}

func (s *stubRepo) EarliestFailureAfter(_ context.Context, url string, after *entity.Attempt) (*entity.Attempt, error) {
	var out *entity.Attempt
	for _, a := range s.attempts {
		if a.URL != url || !a.Status.IsFailure() || (after != nil && !after.Before(a)) {
			continue
		}
		if out == nil || a.Before(out) {
			out = a
		}
	}
	return out, s.err
}

/*──────────────────── helpers ────────────────────*/

const feedURL = "https://rss-feed.com/feed.xml"

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*feedhealth.Service, *stubRepo, *clock.Fake) {
	t.Helper()
	repo := &stubRepo{}
	clk := clock.NewFake(now)
	return feedhealth.NewService(repo, clk, 0), repo, clk
}

// seed records an attempt as if it had been made ago before now.
func seed(t *testing.T, svc *feedhealth.Service, clk *clock.Fake, status entity.AttemptStatus, ago time.Duration) int64 {
	t.Helper()
	clk.Set(now.Add(-ago))
	id, err := svc.RecordAttempt(context.Background(), feedURL, status, nil)
	require.NoError(t, err)
	clk.Set(now)
	return id
}

/*──────────────────── RecordAttempt ────────────────────*/

func TestService_RecordAttempt(t *testing.T) {
	svc, repo, _ := newService(t)

	resp := &entity.Response{StatusCode: 403, Text: "Just a moment...", IsCloudflare: true}
	id, err := svc.RecordAttempt(context.Background(), feedURL, entity.AttemptStatusFailed, resp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.Len(t, repo.attempts, 1)
	stored := repo.attempts[0]
	assert.Equal(t, now, stored.CreatedAt)
	assert.Equal(t, entity.AttemptStatusFailed, stored.Status)
	require.NotNil(t, stored.Response)
	assert.Equal(t, 403, stored.Response.StatusCode)
	assert.NotSame(t, resp, stored.Response)
}

func TestService_RecordAttempt_Validation(t *testing.T) {
	svc, repo, _ := newService(t)

	_, err := svc.RecordAttempt(context.Background(), "", entity.AttemptStatusOK, nil)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.RecordAttempt(context.Background(), feedURL, "DONE", nil)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	assert.Empty(t, repo.attempts)
}

func TestService_RecordAttempt_StorageError(t *testing.T) {
	svc, repo, _ := newService(t)
	dbErr := errors.New("connection refused")
	repo.err = dbErr

	_, err := svc.RecordAttempt(context.Background(), feedURL, entity.AttemptStatusOK, nil)
	assert.ErrorIs(t, err, entity.ErrStorage)
	assert.ErrorIs(t, err, dbErr)
}

/*──────────────────── RequestExistsAfterTime ────────────────────*/

func TestService_RequestExistsAfterTime(t *testing.T) {
	svc, _, clk := newService(t)
	seed(t, svc, clk, entity.AttemptStatusOK, time.Hour)
	ctx := context.Background()

	exists, err := svc.RequestExistsAfterTime(ctx, repository.AttemptFilter{URL: feedURL}, now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.RequestExistsAfterTime(ctx, repository.AttemptFilter{URL: feedURL}, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, exists, "the comparison is strict")

	exists, err = svc.RequestExistsAfterTime(ctx, repository.AttemptFilter{URL: feedURL, Status: entity.AttemptStatusFailed}, now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.RequestExistsAfterTime(ctx, repository.AttemptFilter{}, now)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.RequestExistsAfterTime(ctx, repository.AttemptFilter{URL: feedURL, Status: "DONE"}, now)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

/*──────────────────── GetLatestRequest ────────────────────*/

func TestService_GetLatestRequest(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()

	latest, err := svc.GetLatestRequest(ctx, feedURL)
	require.NoError(t, err)
	assert.Nil(t, latest)

	seed(t, svc, clk, entity.AttemptStatusOK, 2*time.Hour)
	failed := seed(t, svc, clk, entity.AttemptStatusFailed, time.Hour)

	latest, err = svc.GetLatestRequest(ctx, feedURL)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, failed, latest.ID)
}

/*──────────────────── Failure streak ────────────────────*/

func TestService_OnlyOKAttempts(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()
	for _, ago := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
		seed(t, svc, clk, entity.AttemptStatusOK, ago)
	}

	earliest, err := svc.GetEarliestFailedAttempt(ctx, feedURL)
	require.NoError(t, err)
	assert.Nil(t, earliest)

	past, err := svc.IsPastFailureThreshold(ctx, feedURL, 36*time.Hour)
	require.NoError(t, err)
	assert.False(t, past)
}

func TestService_NoAttempts(t *testing.T) {
	svc, _, _ := newService(t)

	past, err := svc.IsPastFailureThreshold(context.Background(), feedURL, 36*time.Hour)
	require.NoError(t, err)
	assert.False(t, past)
}

func TestService_StreakTooYoung(t *testing.T) {
	svc, _, clk := newService(t)
	seed(t, svc, clk, entity.AttemptStatusOK, 72*time.Hour)
	seed(t, svc, clk, entity.AttemptStatusFailed, 2*time.Hour)
	seed(t, svc, clk, entity.AttemptStatusFailed, time.Hour)

	past, err := svc.IsPastFailureThreshold(context.Background(), feedURL, 36*time.Hour)
	require.NoError(t, err)
	assert.False(t, past)
}

func TestService_StreakPastThreshold(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()
	seed(t, svc, clk, entity.AttemptStatusOK, 72*time.Hour)
	oldest := seed(t, svc, clk, entity.AttemptStatusFailed, 37*time.Hour)
	seed(t, svc, clk, entity.AttemptStatusFailed, 36*time.Hour)

	past, err := svc.IsPastFailureThreshold(ctx, feedURL, 36*time.Hour)
	require.NoError(t, err)
	assert.True(t, past)

	earliest, err := svc.GetEarliestFailedAttempt(ctx, feedURL)
	require.NoError(t, err)
	require.NotNil(t, earliest)
	assert.Equal(t, oldest, earliest.ID)
}

func TestService_NeverSucceeded_MixedFailureStatuses(t *testing.T) {
	tests := []struct {
		name string
		seed []struct {
			status entity.AttemptStatus
			ago    time.Duration
		}
		want bool
	}{
		{
			name: "fetch error straddles the threshold",
			seed: []struct {
				status entity.AttemptStatus
				ago    time.Duration
			}{
				{entity.AttemptStatusFailed, 35 * time.Hour},
				{entity.AttemptStatusFetchError, 36 * time.Hour},
				{entity.AttemptStatusFailed, time.Hour},
			},
			want: true,
		},
		{
			name: "all failures inside the threshold",
			seed: []struct {
				status entity.AttemptStatus
				ago    time.Duration
			}{
				{entity.AttemptStatusFetchError, 35 * time.Hour},
				{entity.AttemptStatusFailed, 30 * time.Hour},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, clk := newService(t)
			for _, s := range tt.seed {
				seed(t, svc, clk, s.status, s.ago)
			}

			past, err := svc.IsPastFailureThreshold(context.Background(), feedURL, 36*time.Hour)
			require.NoError(t, err)
			assert.Equal(t, tt.want, past)
		})
	}
}

func TestService_RecoveryResetsStreak(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()
	seed(t, svc, clk, entity.AttemptStatusFailed, 80*time.Hour)
	seed(t, svc, clk, entity.AttemptStatusOK, 10*time.Hour)
	restart := seed(t, svc, clk, entity.AttemptStatusFailed, 5*time.Hour)

	earliest, err := svc.GetEarliestFailedAttempt(ctx, feedURL)
	require.NoError(t, err)
	require.NotNil(t, earliest)
	assert.Equal(t, restart, earliest.ID)

	past, err := svc.IsPastFailureThreshold(ctx, feedURL, 36*time.Hour)
	require.NoError(t, err)
	assert.False(t, past)
}

func TestService_LatestOKMeansHealthy(t *testing.T) {
	svc, _, clk := newService(t)
	seed(t, svc, clk, entity.AttemptStatusFailed, 80*time.Hour)
	seed(t, svc, clk, entity.AttemptStatusOK, time.Hour)

	past, err := svc.IsPastFailureThreshold(context.Background(), feedURL, 36*time.Hour)
	require.NoError(t, err)
	assert.False(t, past)
}

func TestService_TimestampTieUsesInsertionOrder(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()
	// OK and FAILED share a timestamp; the failure was inserted later, so it opens the streak.
	seed(t, svc, clk, entity.AttemptStatusOK, 40*time.Hour)
	failed := seed(t, svc, clk, entity.AttemptStatusFailed, 40*time.Hour)

	earliest, err := svc.GetEarliestFailedAttempt(ctx, feedURL)
	require.NoError(t, err)
	require.NotNil(t, earliest)
	assert.Equal(t, failed, earliest.ID)

	past, err := svc.IsPastFailureThreshold(ctx, feedURL, 36*time.Hour)
	require.NoError(t, err)
	assert.True(t, past)
}

func TestService_LateOKWithOlderTimestamp(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()
	first := seed(t, svc, clk, entity.AttemptStatusFailed, 50*time.Hour)
	seed(t, svc, clk, entity.AttemptStatusFailed, 40*time.Hour)
	// Inserted last but stamped before both failures: it sorts first and does not end the streak.
	seed(t, svc, clk, entity.AttemptStatusOK, 60*time.Hour)

	latest, err := svc.GetLatestRequest(ctx, feedURL)
	require.NoError(t, err)
	assert.Equal(t, entity.AttemptStatusFailed, latest.Status)

	earliest, err := svc.GetEarliestFailedAttempt(ctx, feedURL)
	require.NoError(t, err)
	require.NotNil(t, earliest)
	assert.Equal(t, first, earliest.ID)

	past, err := svc.IsPastFailureThreshold(ctx, feedURL, 36*time.Hour)
	require.NoError(t, err)
	assert.True(t, past)
}

func TestService_DefaultThreshold(t *testing.T) {
	svc, _, clk := newService(t)
	assert.Equal(t, feedhealth.DefaultFailureThreshold, svc.DefaultThreshold())

	seed(t, svc, clk, entity.AttemptStatusFetchError, 36*time.Hour)

	past, err := svc.IsPastFailureThreshold(context.Background(), feedURL, 0)
	require.NoError(t, err)
	assert.True(t, past)

	custom := feedhealth.NewService(&stubRepo{}, clk, 2*time.Hour)
	assert.Equal(t, 2*time.Hour, custom.DefaultThreshold())
}

func TestService_ThresholdStorageError(t *testing.T) {
	svc, repo, _ := newService(t)
	repo.err = errors.New("timeout")

	_, err := svc.IsPastFailureThreshold(context.Background(), feedURL, time.Hour)
	assert.ErrorIs(t, err, entity.ErrStorage)

	_, err = svc.GetEarliestFailedAttempt(context.Background(), feedURL)
	assert.ErrorIs(t, err, entity.ErrStorage)
}
