// Package retry repeats database calls that failed for transient reasons.
package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Policy bounds how often and how patiently an operation is repeated.
type Policy struct {
	Attempts int           // total tries, the first one included
	Base     time.Duration // wait before the first retry
	Cap      time.Duration // upper bound for any single wait
	Jitter   float64       // extra random wait as a fraction of the computed one, in [0, 1]

	// Retryable classifies errors; nil means Transient.
	Retryable func(error) bool
}

// Startup covers the window in which a freshly started database container
// still refuses connections.
func Startup() Policy {
	return Policy{Attempts: 8, Base: 500 * time.Millisecond, Cap: 10 * time.Second, Jitter: 0.1}
}

// Wait returns the pause after the n-th failed try (n starts at 1),
// doubling from Base up to Cap before jitter is added.
func (p Policy) Wait(n int) time.Duration {
	d := p.Base
	for i := 1; i < n && d < p.Cap; i++ {
		d *= 2
	}
	if d > p.Cap {
		d = p.Cap
	}
	j := min(max(p.Jitter, 0), 1)
	if j == 0 || d <= 0 {
		return d
	}
	// #nosec G404 -- jitter does not need cryptographic randomness.
	return d + time.Duration(rand.Float64()*j*float64(d))
}

// Run calls fn until it succeeds, fails permanently, runs out of attempts or
// ctx ends. op names the operation in logs and errors.
func (p Policy) Run(ctx context.Context, op string, fn func(context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = Transient
	}

	var err error
	for n := 1; ; n++ {
		if err = fn(ctx); err == nil {
			if n > 1 {
				slog.InfoContext(ctx, "operation recovered", slog.String("op", op), slog.Int("attempt", n))
			}
			return nil
		}
		if !retryable(err) {
			return err
		}
		if n >= p.Attempts {
			return fmt.Errorf("%s: giving up after %d attempts: %w", op, n, err)
		}

		wait := p.Wait(n)
		slog.WarnContext(ctx, "operation failed, will retry",
			slog.String("op", op),
			slog.Int("attempt", n),
			slog.Int("attempts", p.Attempts),
			slog.Duration("wait", wait),
			slog.Any("error", err))

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s: %w (last error: %v)", op, ctx.Err(), err)
		}
	}
}

// Postgres SQLSTATEs worth repeating.
var transientStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"57P03": true, // cannot_connect_now
}

// Transient reports whether err is a connectivity or concurrency failure that
// may succeed when tried again. Context cancellation never is.
func Transient(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, syscall.ENETUNREACH):
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection_exception.
		return pgErr.Code[:min(2, len(pgErr.Code))] == "08" || transientStates[pgErr.Code]
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return pgconn.SafeToRetry(err)
}
