package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Postgres schema. Timestamps are TIMESTAMPTZ; attempts.id doubles as the
// insertion sequence that breaks created_at ties.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS attempts (
    id          BIGSERIAL PRIMARY KEY,
    url         TEXT NOT NULL,
    status      VARCHAR(16) NOT NULL CHECK (status IN ('OK', 'FAILED', 'FETCH_ERROR')),
    created_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS responses (
    id             BIGSERIAL PRIMARY KEY,
    attempt_id     BIGINT NOT NULL UNIQUE REFERENCES attempts(id) ON DELETE CASCADE,
    status_code    INTEGER NOT NULL,
    text           TEXT,
    is_cloudflare  BOOLEAN NOT NULL DEFAULT FALSE
)`,
	`CREATE TABLE IF NOT EXISTS delivery_records (
    id                TEXT PRIMARY KEY,
    feed_id           TEXT NOT NULL,
    medium_id         TEXT NOT NULL,
    article_id_hash   TEXT,
    article_id        TEXT,
    status            VARCHAR(32) NOT NULL,
    error_code        VARCHAR(64),
    internal_message  TEXT,
    external_detail   TEXT,
    content_type      VARCHAR(64),
    parent_id         TEXT REFERENCES delivery_records(id),
    created_at        TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_url_created ON attempts(url, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_url_status_created ON attempts(url, status, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_records_feed_created ON delivery_records(feed_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_records_medium_created ON delivery_records(medium_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_records_article_id_hash ON delivery_records(article_id_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_records_pending ON delivery_records(created_at) WHERE status = 'pending-delivery'`,
}

// SQLite schema. created_at holds Unix nanoseconds in UTC so that ordering and
// window comparisons are plain integer comparisons.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS attempts (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    url         TEXT NOT NULL,
    status      TEXT NOT NULL CHECK (status IN ('OK', 'FAILED', 'FETCH_ERROR')),
    created_at  INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS responses (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    attempt_id     INTEGER NOT NULL UNIQUE REFERENCES attempts(id) ON DELETE CASCADE,
    status_code    INTEGER NOT NULL,
    text           TEXT,
    is_cloudflare  INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS delivery_records (
    id                TEXT PRIMARY KEY,
    feed_id           TEXT NOT NULL,
    medium_id         TEXT NOT NULL,
    article_id_hash   TEXT,
    article_id        TEXT,
    status            TEXT NOT NULL,
    error_code        TEXT,
    internal_message  TEXT,
    external_detail   TEXT,
    content_type      TEXT,
    parent_id         TEXT REFERENCES delivery_records(id),
    created_at        INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_url_created ON attempts(url, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_url_status_created ON attempts(url, status, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_records_feed_created ON delivery_records(feed_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_records_medium_created ON delivery_records(medium_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_records_article_id_hash ON delivery_records(article_id_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_records_pending ON delivery_records(created_at) WHERE status = 'pending-delivery'`,
}

var dropStatements = []string{
	`DROP TABLE IF EXISTS delivery_records`,
	`DROP TABLE IF EXISTS responses`,
	`DROP TABLE IF EXISTS attempts`,
}

func schemaFor(driver Driver) ([]string, error) {
	switch driver {
	case DriverPostgres:
		return postgresSchema, nil
	case DriverSQLite:
		return sqliteSchema, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// MigrateUp creates the ledger tables and indexes. It is idempotent.
func MigrateUp(ctx context.Context, db *sql.DB, driver Driver) error {
	stmts, err := schemaFor(driver)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// MigrateDown drops the ledger tables. All ledger data is lost.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	for _, stmt := range dropStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SchemaReady reports whether the ledger tables exist.
func SchemaReady(ctx context.Context, db *sql.DB, driver Driver) (bool, error) {
	var query string
	switch driver {
	case DriverPostgres:
		query = `SELECT COUNT(*) FROM information_schema.tables
WHERE table_schema = current_schema() AND table_name IN ('attempts', 'responses', 'delivery_records')`
	case DriverSQLite:
		query = `SELECT COUNT(*) FROM sqlite_master
WHERE type = 'table' AND name IN ('attempts', 'responses', 'delivery_records')`
	default:
		return false, fmt.Errorf("unsupported database driver %q", driver)
	}

	var n int
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return false, fmt.Errorf("SchemaReady: %w", err)
	}
	return n == 3, nil
}
