package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"feed-ledger/internal/config"
	hhttp "feed-ledger/internal/handler/http"
	hattempt "feed-ledger/internal/handler/http/attempt"
	hdelivery "feed-ledger/internal/handler/http/delivery"
	"feed-ledger/internal/handler/http/requestid"
	"feed-ledger/internal/infra/adapter/persistence/postgres"
	"feed-ledger/internal/infra/adapter/persistence/sqlite"
	"feed-ledger/internal/infra/db"
	"feed-ledger/internal/infra/worker"
	"feed-ledger/internal/observability/tracing"
	"feed-ledger/internal/repository"
	"feed-ledger/internal/resilience/circuitbreaker"
	"feed-ledger/internal/usecase/delivery"
	"feed-ledger/internal/usecase/feedhealth"
	"feed-ledger/pkg/clock"
)

type app struct {
	apiHandler http.Handler
	opsHandler http.Handler
	scheduler  *worker.Scheduler
}

// newApp builds repositories, services, routes and the job scheduler.
func newApp(cfg *config.LedgerConfig, database *sql.DB, logger *slog.Logger, reg prometheus.Registerer) (*app, error) {
	breaker := circuitbreaker.NewDBCircuitBreaker(database)

	attempts, deliveries, err := newRepos(cfg.Database.Driver, breaker)
	if err != nil {
		return nil, err
	}

	clk := clock.SystemClock{}
	healthSvc := feedhealth.NewService(attempts, clk, cfg.FeedHealth.FailureThreshold)
	deliverySvc := delivery.NewService(deliveries, clk)

	mux := http.NewServeMux()
	hattempt.Register(mux, healthSvc)
	hdelivery.Register(mux, deliverySvc)

	api := hhttp.Chain(mux,
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Logging(logger),
		hhttp.Recover(logger),
		hhttp.MetricsMiddleware,
		hhttp.LimitRequest(cfg.Server.MaxBodyBytes),
		hhttp.Timeout(cfg.Server.RequestTimeout),
	)

	ops := hhttp.HealthMux(
		&hhttp.HealthHandler{DB: database, Breaker: breaker, Version: version()},
		&hhttp.ReadyHandler{DB: database, Driver: cfg.Database.Driver},
	)

	scheduler := worker.NewScheduler(cfg.Location(), cfg.Server.RequestTimeout, logger,
		worker.NewJobMetrics(reg))
	report := &worker.StaleReport{
		Deliveries: deliverySvc,
		OlderThan:  cfg.Delivery.StalePendingAfter,
		DB:         database,
		Breaker:    breaker,
		Logger:     logger,
	}
	if err := scheduler.Add(worker.StaleJobName, cfg.Delivery.StaleCheckSchedule, report.Run); err != nil {
		return nil, err
	}

	return &app{apiHandler: api, opsHandler: ops, scheduler: scheduler}, nil
}

func newRepos(driver db.Driver, conn db.Conn) (repository.AttemptRepository, repository.DeliveryRecordRepository, error) {
	switch driver {
	case db.DriverPostgres:
		return postgres.NewAttemptRepo(conn), postgres.NewDeliveryRecordRepo(conn), nil
	case db.DriverSQLite:
		return sqlite.NewAttemptRepo(conn), sqlite.NewDeliveryRecordRepo(conn), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
