package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feed-ledger/internal/domain/entity"
	"feed-ledger/internal/infra/db"
	"feed-ledger/internal/repository"
)

type AttemptRepo struct{ db db.Conn }

func NewAttemptRepo(conn db.Conn) repository.AttemptRepository {
	return &AttemptRepo{db: conn}
}

const attemptColumns = `
a.id, a.url, a.status, a.created_at,
r.id, r.status_code, r.text, r.is_cloudflare`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (*entity.Attempt, error) {
	var (
		attempt      entity.Attempt
		respID       sql.NullInt64
		statusCode   sql.NullInt64
		text         sql.NullString
		isCloudflare sql.NullBool
	)
	if err := row.Scan(
		&attempt.ID, &attempt.URL, &attempt.Status, &attempt.CreatedAt,
		&respID, &statusCode, &text, &isCloudflare,
	); err != nil {
		return nil, err
	}
	attempt.CreatedAt = attempt.CreatedAt.UTC()
	if respID.Valid {
		attempt.Response = &entity.Response{
			ID:           respID.Int64,
			StatusCode:   int(statusCode.Int64),
			Text:         text.String,
			IsCloudflare: isCloudflare.Bool,
		}
	}
	return &attempt, nil
}

func (repo *AttemptRepo) Create(ctx context.Context, attempt *entity.Attempt) error {
	defer observe("attempt_create")()

	const insertAttempt = `
INSERT INTO attempts (url, status, created_at)
VALUES ($1, $2, $3)
RETURNING id`
	const insertResponse = `
INSERT INTO responses (attempt_id, status_code, text, is_cloudflare)
VALUES ($1, $2, $3, $4)
RETURNING id`

	err := db.WithTx(ctx, repo.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, insertAttempt,
			attempt.URL, attempt.Status, attempt.CreatedAt,
		).Scan(&attempt.ID); err != nil {
			return err
		}
		if attempt.Response == nil {
			return nil
		}
		return tx.QueryRowContext(ctx, insertResponse,
			attempt.ID, attempt.Response.StatusCode, nullString(attempt.Response.Text), attempt.Response.IsCloudflare,
		).Scan(&attempt.Response.ID)
	})
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *AttemptRepo) ExistsAfter(ctx context.Context, filter repository.AttemptFilter, t time.Time) (bool, error) {
	defer observe("attempt_exists_after")()

	const anyStatus = `
SELECT EXISTS (
    SELECT 1 FROM attempts
    WHERE url = $1 AND created_at > $2
)`
	const withStatus = `
SELECT EXISTS (
    SELECT 1 FROM attempts
    WHERE url = $1 AND created_at > $2 AND status = $3
)`
	var (
		exists bool
		err    error
	)
	if filter.Status == "" {
		err = db.QueryRow(ctx, repo.db, anyStatus, filter.URL, t).Scan(&exists)
	} else {
		err = db.QueryRow(ctx, repo.db, withStatus, filter.URL, t, filter.Status).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("ExistsAfter: %w", err)
	}
	return exists, nil
}

func (repo *AttemptRepo) Latest(ctx context.Context, url string) (*entity.Attempt, error) {
	defer observe("attempt_latest")()

	const query = `
SELECT` + attemptColumns + `
FROM attempts a
LEFT JOIN responses r ON r.attempt_id = a.id
WHERE a.url = $1
ORDER BY a.created_at DESC, a.id DESC
LIMIT 1`
	attempt, err := scanAttempt(db.QueryRow(ctx, repo.db, query, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Latest: %w", err)
	}
	return attempt, nil
}

func (repo *AttemptRepo) LatestWithStatus(ctx context.Context, url string, status entity.AttemptStatus) (*entity.Attempt, error) {
	defer observe("attempt_latest_with_status")()

	const query = `
SELECT` + attemptColumns + `
FROM attempts a
LEFT JOIN responses r ON r.attempt_id = a.id
WHERE a.url = $1 AND a.status = $2
ORDER BY a.created_at DESC, a.id DESC
LIMIT 1`
	attempt, err := scanAttempt(db.QueryRow(ctx, repo.db, query, url, status))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LatestWithStatus: %w", err)
	}
	return attempt, nil
}

func (repo *AttemptRepo) EarliestFailureAfter(ctx context.Context, url string, after *entity.Attempt) (*entity.Attempt, error) {
	defer observe("attempt_earliest_failure")()

	const fromStart = `
SELECT` + attemptColumns + `
FROM attempts a
LEFT JOIN responses r ON r.attempt_id = a.id
WHERE a.url = $1 AND a.status IN ($2, $3)
ORDER BY a.created_at ASC, a.id ASC
LIMIT 1`
	const afterBoundary = `
SELECT` + attemptColumns + `
FROM attempts a
LEFT JOIN responses r ON r.attempt_id = a.id
WHERE a.url = $1 AND a.status IN ($2, $3)
  AND (a.created_at > $4 OR (a.created_at = $4 AND a.id > $5))
ORDER BY a.created_at ASC, a.id ASC
LIMIT 1`

	failures := entity.FailureAttemptStatuses()
	var row db.Row
	if after == nil {
		row = db.QueryRow(ctx, repo.db, fromStart, url, failures[0], failures[1])
	} else {
		row = db.QueryRow(ctx, repo.db, afterBoundary, url, failures[0], failures[1], after.CreatedAt, after.ID)
	}

	attempt, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("EarliestFailureAfter: %w", err)
	}
	return attempt, nil
}
