package postgres_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"feed-ledger/internal/domain/entity"
	"feed-ledger/internal/infra/adapter/persistence/postgres"
	"feed-ledger/internal/repository"
)

/* ──────────────────────────────── helpers ──────────────────────────────── */

var attemptCols = []string{
	"id", "url", "status", "created_at",
	"r_id", "status_code", "text", "is_cloudflare",
}

func attemptRow(a *entity.Attempt) *sqlmock.Rows {
	rows := sqlmock.NewRows(attemptCols)
	if a.Response == nil {
		return rows.AddRow(a.ID, a.URL, string(a.Status), a.CreatedAt, nil, nil, nil, nil)
	}
	return rows.AddRow(a.ID, a.URL, string(a.Status), a.CreatedAt,
		a.Response.ID, a.Response.StatusCode, a.Response.Text, a.Response.IsCloudflare)
}

const feedURL = "https://rss-feed.com/feed.xml"

var t0 = time.Date(2024, 2, 4, 12, 0, 0, 0, time.UTC)

/* ──────────────────────────────── 1. Create ──────────────────────────────── */

func TestAttemptRepo_Create_WithResponse(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	attempt := &entity.Attempt{
		URL:       feedURL,
		Status:    entity.AttemptStatusFailed,
		CreatedAt: t0,
		Response:  &entity.Response{StatusCode: 403, Text: "Just a moment...", IsCloudflare: true},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO attempts (url, status, created_at)`)).
		WithArgs(feedURL, "FAILED", t0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO responses (attempt_id, status_code, text, is_cloudflare)`)).
		WithArgs(int64(7), 403, "Just a moment...", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	repo := postgres.NewAttemptRepo(db)
	if err := repo.Create(context.Background(), attempt); err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if attempt.ID != 7 || attempt.Response.ID != 3 {
		t.Fatalf("ids not assigned: attempt=%d response=%d", attempt.ID, attempt.Response.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAttemptRepo_Create_WithoutResponse(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO attempts`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	repo := postgres.NewAttemptRepo(db)
	attempt := &entity.Attempt{URL: feedURL, Status: entity.AttemptStatusOK, CreatedAt: t0}
	if err := repo.Create(context.Background(), attempt); err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAttemptRepo_Create_RollsBackOnResponseError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO attempts`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO responses`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	repo := postgres.NewAttemptRepo(db)
	attempt := &entity.Attempt{URL: feedURL, Status: entity.AttemptStatusFailed, CreatedAt: t0, Response: &entity.Response{StatusCode: 500}}
	err := repo.Create(context.Background(), attempt)
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("want ErrConnDone, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

/* ──────────────────────────────── 2. ExistsAfter ──────────────────────────────── */

func TestAttemptRepo_ExistsAfter(t *testing.T) {
	tests := []struct {
		name   string
		filter repository.AttemptFilter
		args   []driver.Value
		want   bool
	}{
		{"any status", repository.AttemptFilter{URL: feedURL}, []driver.Value{feedURL, t0}, true},
		{"with status", repository.AttemptFilter{URL: feedURL, Status: entity.AttemptStatusOK}, []driver.Value{feedURL, t0, "OK"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, _ := sqlmock.New()
			defer func() { _ = db.Close() }()

			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.want))

			got, err := postgres.NewAttemptRepo(db).ExistsAfter(context.Background(), tt.filter, t0)
			if err != nil {
				t.Fatalf("ExistsAfter err=%v", err)
			}
			if got != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

/* ──────────────────────────────── 3. Latest ──────────────────────────────── */

func TestAttemptRepo_Latest(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := &entity.Attempt{
		ID: 2, URL: feedURL, Status: entity.AttemptStatusFailed, CreatedAt: t0,
		Response: &entity.Response{ID: 1, StatusCode: 500, Text: "oops"},
	}
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY a.created_at DESC, a.id DESC`)).
		WithArgs(feedURL).
		WillReturnRows(attemptRow(want))

	got, err := postgres.NewAttemptRepo(db).Latest(context.Background(), feedURL)
	if err != nil {
		t.Fatalf("Latest err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAttemptRepo_Latest_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM attempts a`).
		WithArgs(feedURL).
		WillReturnRows(sqlmock.NewRows(attemptCols))

	got, err := postgres.NewAttemptRepo(db).Latest(context.Background(), feedURL)
	if err != nil || got != nil {
		t.Fatalf("want nil,nil got %v,%v", got, err)
	}
}

func TestAttemptRepo_LatestWithStatus(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := &entity.Attempt{ID: 4, URL: feedURL, Status: entity.AttemptStatusOK, CreatedAt: t0}
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE a.url = $1 AND a.status = $2`)).
		WithArgs(feedURL, "OK").
		WillReturnRows(attemptRow(want))

	got, err := postgres.NewAttemptRepo(db).LatestWithStatus(context.Background(), feedURL, entity.AttemptStatusOK)
	if err != nil {
		t.Fatalf("LatestWithStatus err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAttemptRepo_Latest_DBError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM attempts a`).WillReturnError(sql.ErrConnDone)

	_, err := postgres.NewAttemptRepo(db).Latest(context.Background(), feedURL)
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("want ErrConnDone, got %v", err)
	}
}

/* ──────────────────────────────── 4. EarliestFailureAfter ──────────────────────────────── */

func TestAttemptRepo_EarliestFailureAfter_FromStart(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := &entity.Attempt{ID: 1, URL: feedURL, Status: entity.AttemptStatusFetchError, CreatedAt: t0}
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY a.created_at ASC, a.id ASC`)).
		WithArgs(feedURL, "FAILED", "FETCH_ERROR").
		WillReturnRows(attemptRow(want))

	got, err := postgres.NewAttemptRepo(db).EarliestFailureAfter(context.Background(), feedURL, nil)
	if err != nil {
		t.Fatalf("EarliestFailureAfter err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAttemptRepo_EarliestFailureAfter_Boundary(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	boundary := &entity.Attempt{ID: 5, URL: feedURL, Status: entity.AttemptStatusOK, CreatedAt: t0}
	mock.ExpectQuery(regexp.QuoteMeta(`(a.created_at > $4 OR (a.created_at = $4 AND a.id > $5))`)).
		WithArgs(feedURL, "FAILED", "FETCH_ERROR", t0, int64(5)).
		WillReturnRows(sqlmock.NewRows(attemptCols))

	got, err := postgres.NewAttemptRepo(db).EarliestFailureAfter(context.Background(), feedURL, boundary)
	if err != nil || got != nil {
		t.Fatalf("want nil,nil got %v,%v", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
