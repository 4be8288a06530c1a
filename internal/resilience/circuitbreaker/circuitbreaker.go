// Package circuitbreaker stops calls to a failing dependency for a cool-down
// period. It is built on github.com/sony/gobreaker; state changes are logged
// and exported through the circuit_breaker_state gauge.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"feed-ledger/internal/observability/metrics"
)

// Config describes when a breaker trips and how it recovers.
type Config struct {
	Name string

	// MaxRequests may pass while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts; 0 never clears them.
	Interval time.Duration
	// Timeout is the open period before probing again.
	Timeout time.Duration

	// The breaker trips once MinRequests calls were seen in the current
	// interval and at least FailureRatio of them failed.
	MinRequests  uint32
	FailureRatio float64

	// IsSuccessful decides which errors do not count as failures.
	// Nil means only a nil error is a success.
	IsSuccessful func(err error) bool
}

func (c Config) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

// CircuitBreaker is a named gobreaker.CircuitBreaker.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a closed breaker from cfg.
func New(cfg Config) *CircuitBreaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		IsSuccessful: cfg.IsSuccessful,
		ReadyToTrip:  cfg.readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.UpdateCircuitBreakerState(name, int(to))
		},
	})
	metrics.UpdateCircuitBreakerState(cfg.Name, int(gobreaker.StateClosed))
	return &CircuitBreaker{breaker: cb, name: cfg.Name}
}

// Do runs fn through cb. While the breaker is open it returns
// gobreaker.ErrOpenState without calling fn.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

func (cb *CircuitBreaker) State() gobreaker.State { return cb.breaker.State() }

func (cb *CircuitBreaker) Name() string { return cb.name }
