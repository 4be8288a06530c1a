package circuitbreaker

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"

	"feed-ledger/internal/infra/db"
)

// DBCircuitBreaker wraps a database handle with circuit breaker protection.
// It satisfies the same Conn interface as *sql.DB, so repositories accept either.
type DBCircuitBreaker struct {
	cb *CircuitBreaker
	db *sql.DB
}

// DBConfig returns configuration for the database circuit breaker.
// Opens after 5 requests that all failed, retries after 30 seconds.
func DBConfig() Config {
	return Config{
		Name:         "database",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 1.0,
		MinRequests:  5,
		IsSuccessful: isHealthyDBResult,
	}
}

// isHealthyDBResult treats answers from a reachable database as successes:
// constraint violations, missing rows and caller cancellation say nothing about
// database health.
func isHealthyDBResult(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, context.Canceled) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08 connection exception, 53 insufficient resources, 57 operator intervention
		class := pgErr.Code
		if len(class) > 2 {
			class = class[:2]
		}
		switch class {
		case "08", "53", "57":
			return false
		}
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint failed")
}

// NewDBCircuitBreaker wraps db with DBConfig.
func NewDBCircuitBreaker(db *sql.DB) *DBCircuitBreaker {
	return NewDBCircuitBreakerWithConfig(db, DBConfig())
}

// NewDBCircuitBreakerWithConfig wraps db with a custom configuration.
func NewDBCircuitBreakerWithConfig(db *sql.DB, cfg Config) *DBCircuitBreaker {
	return &DBCircuitBreaker{
		cb: New(cfg),
		db: db,
	}
}

// QueryContext executes a query with circuit breaker protection.
func (dcb *DBCircuitBreaker) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return Do(dcb.cb, func() (*sql.Rows, error) {
		return dcb.db.QueryContext(ctx, query, args...)
	})
}

// ExecContext executes a statement with circuit breaker protection.
func (dcb *DBCircuitBreaker) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return Do(dcb.cb, func() (sql.Result, error) {
		return dcb.db.ExecContext(ctx, query, args...)
	})
}

// QueryRowContext is not protected: *sql.Row defers its error until Scan.
// Repositories read single rows through QueryRow instead.
func (dcb *DBCircuitBreaker) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return dcb.db.QueryRowContext(ctx, query, args...)
}

// QueryRow defers the query until Scan and runs query and Scan through the
// breaker, so an open breaker never reaches the database.
func (dcb *DBCircuitBreaker) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	return guardedRow{dcb: dcb, ctx: ctx, query: query, args: args}
}

type guardedRow struct {
	dcb   *DBCircuitBreaker
	ctx   context.Context
	query string
	args  []interface{}
}

func (r guardedRow) Scan(dest ...interface{}) error {
	_, err := Do(r.dcb.cb, func() (struct{}, error) {
		return struct{}{}, r.dcb.db.QueryRowContext(r.ctx, r.query, r.args...).Scan(dest...)
	})
	return err
}

// BeginTx starts a transaction with circuit breaker protection. Statements run
// on the returned *sql.Tx bypass the breaker.
func (dcb *DBCircuitBreaker) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return Do(dcb.cb, func() (*sql.Tx, error) {
		return dcb.db.BeginTx(ctx, opts)
	})
}

// PingContext checks connectivity through the breaker.
func (dcb *DBCircuitBreaker) PingContext(ctx context.Context) error {
	_, err := Do(dcb.cb, func() (struct{}, error) {
		return struct{}{}, dcb.db.PingContext(ctx)
	})
	return err
}

// State returns the current state of the circuit breaker.
func (dcb *DBCircuitBreaker) State() gobreaker.State {
	return dcb.cb.State()
}

// IsOpen returns true if the circuit breaker is in the open state.
func (dcb *DBCircuitBreaker) IsOpen() bool {
	return dcb.cb.State() == gobreaker.StateOpen
}

// DB returns the underlying database handle.
func (dcb *DBCircuitBreaker) DB() *sql.DB {
	return dcb.db
}
