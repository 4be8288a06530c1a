// Package worker runs the ledger's periodic maintenance jobs on a cron schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"feed-ledger/internal/handler/http/respond"
)

// JobFunc is one unit of scheduled work. It must honour ctx.
type JobFunc func(ctx context.Context) error

// Scheduler wraps a cron scheduler with per-run timeouts, logging and metrics.
// A run that is still in progress when its next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	metrics *JobMetrics
	timeout time.Duration
}

// NewScheduler builds a scheduler that evaluates schedules in loc and bounds
// every run by timeout.
func NewScheduler(loc *time.Location, timeout time.Duration, logger *slog.Logger, metrics *JobMetrics) *Scheduler {
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
	}
}

// Add registers fn under name with a five-field cron schedule or descriptor.
func (s *Scheduler) Add(name, schedule string, fn JobFunc) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.run(context.Background(), name, fn) }); err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}
	s.logger.Info("job scheduled", slog.String("job", name), slog.String("schedule", schedule))
	return nil
}

func (s *Scheduler) run(parent context.Context, name string, fn JobFunc) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if err != nil {
		s.metrics.RecordRun(name, StatusFailure, duration)
		s.logger.Error("job failed",
			slog.String("job", name),
			slog.Duration("duration", duration),
			slog.String("error", respond.SanitizeError(err)))
		return
	}
	s.metrics.RecordRun(name, StatusSuccess, duration)
	s.logger.Debug("job completed", slog.String("job", name), slog.Duration("duration", duration))
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
