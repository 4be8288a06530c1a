package sqlite

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

const attemptSelect = `
SELECT a.id, a.url, a.status, a.created_at,
       r.id, r.status_code, r.text, r.is_cloudflare
FROM attempts a
LEFT JOIN responses r ON r.attempt_id = a.id`

func scanAttempt(row rowScanner) (*entity.Attempt, error) {
	var (
		attempt      entity.Attempt
		status       string
		createdAt    int64
		respID       sql.NullInt64
		statusCode   sql.NullInt64
		text         sql.NullString
		isCloudflare sql.NullBool
	)
	if err := row.Scan(
		&attempt.ID, &attempt.URL, &status, &createdAt,
		&respID, &statusCode, &text, &isCloudflare,
	); err != nil {
		return nil, err
	}
	attempt.Status = entity.AttemptStatus(status)
	attempt.CreatedAt = fromNanos(createdAt)
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

	const insertAttempt = `INSERT INTO attempts (url, status, created_at) VALUES (?, ?, ?) RETURNING id`
	const insertResponse = `
INSERT INTO responses (attempt_id, status_code, text, is_cloudflare)
VALUES (?, ?, ?, ?)
RETURNING id`

	err := db.WithTx(ctx, repo.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, insertAttempt,
			attempt.URL, string(attempt.Status), toNanos(attempt.CreatedAt),
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

	query := `SELECT EXISTS (SELECT 1 FROM attempts WHERE url = ? AND created_at > ?`
	args := []interface{}{filter.URL, toNanos(t)}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += `)`

	var exists bool
	if err := db.QueryRow(ctx, repo.db, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("ExistsAfter: %w", err)
	}
	return exists, nil
}

func (repo *AttemptRepo) Latest(ctx context.Context, url string) (*entity.Attempt, error) {
	defer observe("attempt_latest")()

	const query = attemptSelect + `
WHERE a.url = ?
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

	const query = attemptSelect + `
WHERE a.url = ? AND a.status = ?
ORDER BY a.created_at DESC, a.id DESC
LIMIT 1`
	attempt, err := scanAttempt(db.QueryRow(ctx, repo.db, query, url, string(status)))
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

	failures := entity.FailureAttemptStatuses()
	query := attemptSelect + `
WHERE a.url = ? AND a.status IN (?, ?)`
	args := []interface{}{url, string(failures[0]), string(failures[1])}
	if after != nil {
		query += `
  AND (a.created_at > ? OR (a.created_at = ? AND a.id > ?))`
		createdAt := toNanos(after.CreatedAt)
		args = append(args, createdAt, createdAt, after.ID)
	}
	query += `
ORDER BY a.created_at ASC, a.id ASC
LIMIT 1`

	attempt, err := scanAttempt(db.QueryRow(ctx, repo.db, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("EarliestFailureAfter: %w", err)
	}
	return attempt, nil
}
