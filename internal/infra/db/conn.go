package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Conn is the subset of *sql.DB the repositories use. *sql.DB and
// circuitbreaker.DBCircuitBreaker both satisfy it.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Row is the Scan half of *sql.Row.
type Row interface {
	Scan(dest ...interface{}) error
}

// RowQuerier is implemented by connections that need to observe the outcome
// of single-row reads, whose errors *sql.Row only reports at Scan.
type RowQuerier interface {
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
}

// QueryRow runs a single-row query on conn, going through conn's own QueryRow
// when it has one.
func QueryRow(ctx context.Context, conn Conn, query string, args ...interface{}) Row {
	if q, ok := conn.(RowQuerier); ok {
		return q.QueryRow(ctx, query, args...)
	}
	return conn.QueryRowContext(ctx, query, args...)
}

// WithTx runs fn inside a transaction, committing on success and rolling back
// when fn returns an error.
func WithTx(ctx context.Context, conn Conn, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
