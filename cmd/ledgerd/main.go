// Command ledgerd serves the fetch-health and delivery ledger over HTTP and
// runs its periodic maintenance jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"feed-ledger/internal/config"
	"feed-ledger/internal/handler/http/respond"
	"feed-ledger/internal/infra/db"
	"feed-ledger/internal/observability/logging"
	"feed-ledger/internal/observability/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", respond.SanitizeError(err)))
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ledgerd stopped with error", slog.String("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
	logger.Info("ledgerd stopped")
}

func run(ctx context.Context, cfg *config.LedgerConfig, logger *slog.Logger) error {
	if cfg.Tracing.Enabled {
		shutdownTracing := tracing.Init(cfg.Tracing.SampleRatio)
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Warn("tracer shutdown failed", slog.Any("error", err))
			}
		}()
	}

	database, err := db.Open(ctx, cfg.DB())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(ctx, database, cfg.Database.Driver); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database schema up to date", slog.String("driver", string(cfg.Database.Driver)))
	}

	app, err := newApp(cfg, database, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	apiServer := newServer(cfg.Server.Addr, app.apiHandler, cfg)
	opsServer := newServer(cfg.Server.MetricsAddr, app.opsHandler, cfg)

	app.scheduler.Start()
	logger.Info("ledgerd started",
		slog.String("api_addr", cfg.Server.Addr),
		slog.String("metrics_addr", cfg.Server.MetricsAddr),
		slog.String("version", version()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiServer, "api", logger) })
	g.Go(func() error { return serve(opsServer, "ops", logger) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down")
		return errors.Join(
			apiServer.Shutdown(shutdownCtx),
			opsServer.Shutdown(shutdownCtx),
			app.scheduler.Stop(shutdownCtx),
		)
	})
	return g.Wait()
}

func newServer(addr string, h http.Handler, cfg *config.LedgerConfig) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.Background() },
	}
}

// serve treats http.ErrServerClosed as a clean exit.
func serve(srv *http.Server, name string, logger *slog.Logger) error {
	logger.Info("server listening", slog.String("server", name), slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

func version() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}
