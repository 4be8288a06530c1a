// Package config loads the ledger daemon configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file named by LEDGER_CONFIG_FILE, then environment variables. Structural
// settings (database, listen addresses) fail validation outright; operational
// knobs (schedules, thresholds) fall back to their defaults with a warning.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"feed-ledger/internal/infra/db"
	validate "feed-ledger/internal/pkg/config"
	envconfig "feed-ledger/pkg/config"
)

// Defaults.
const (
	DefaultAPIAddr            = ":8080"
	DefaultMetricsAddr        = ":9090"
	DefaultFailureThreshold   = 36 * time.Hour
	DefaultStalePendingAfter  = time.Hour
	DefaultStaleCheckSchedule = "*/5 * * * *"
	DefaultTimezone           = "UTC"
	DefaultMaxBodyBytes       = 1 << 20
)

// LedgerConfig is the complete configuration of cmd/ledgerd.
type LedgerConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	FeedHealth FeedHealthConfig `yaml:"feed_health"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Log        LogConfig        `yaml:"log"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

type DatabaseConfig struct {
	Driver          db.Driver     `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// FeedHealthConfig tunes the failure streak detector.
type FeedHealthConfig struct {
	// FailureThreshold is used when a caller asks without a threshold of its own.
	FailureThreshold time.Duration `yaml:"failure_threshold"`
}

// DeliveryConfig tunes the stale pending report.
type DeliveryConfig struct {
	StalePendingAfter  time.Duration `yaml:"stale_pending_after"`
	StaleCheckSchedule string        `yaml:"stale_check_schedule"`
	Timezone           string        `yaml:"timezone"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the built-in configuration.
func Default() LedgerConfig {
	pool := db.DefaultConnectionConfig()
	return LedgerConfig{
		Server: ServerConfig{
			Addr:            DefaultAPIAddr,
			MetricsAddr:     DefaultMetricsAddr,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
		Database: DatabaseConfig{
			Driver:          db.DriverPostgres,
			MaxOpenConns:    pool.MaxOpenConns,
			MaxIdleConns:    pool.MaxIdleConns,
			ConnMaxLifetime: pool.ConnMaxLifetime,
			ConnMaxIdleTime: pool.ConnMaxIdleTime,
		},
		FeedHealth: FeedHealthConfig{FailureThreshold: DefaultFailureThreshold},
		Delivery: DeliveryConfig{
			StalePendingAfter:  DefaultStalePendingAfter,
			StaleCheckSchedule: DefaultStaleCheckSchedule,
			Timezone:           DefaultTimezone,
		},
		Log:     LogConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{SampleRatio: 1},
	}
}

var (
	metricsOnce   sync.Once
	configMetrics *validate.ConfigMetrics
)

func ledgerConfigMetrics() *validate.ConfigMetrics {
	metricsOnce.Do(func() {
		configMetrics = validate.NewConfigMetrics(prometheus.DefaultRegisterer, "ledger")
	})
	return configMetrics
}

// Load resolves the configuration from defaults, LEDGER_CONFIG_FILE and the environment,
// and records the result in the ledger_config_* metrics.
func Load() (*LedgerConfig, error) {
	cfg, fallbacks, err := load()
	if err != nil {
		return nil, err
	}

	m := ledgerConfigMetrics()
	m.RecordLoadTimestamp()
	for _, field := range fallbacks {
		m.RecordFallback(field)
	}
	m.SetFallbackActive(len(fallbacks) > 0)
	return cfg, nil
}

func load() (*LedgerConfig, []string, error) {
	cfg := Default()

	if path := envconfig.GetEnvString("LEDGER_CONFIG_FILE", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid ledger configuration: %w", err)
	}
	return &cfg, cfg.applyFallbacks(), nil
}

// mergeFile overlays the YAML file at path onto cfg. Keys absent from the file keep their value.
func (c *LedgerConfig) mergeFile(path string) error {
	// #nosec G304 -- path comes from the operator's environment
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *LedgerConfig) applyEnv() {
	c.Server.Addr = envconfig.GetEnvString("API_ADDR", c.Server.Addr)
	c.Server.MetricsAddr = envconfig.GetEnvString("METRICS_ADDR", c.Server.MetricsAddr)
	c.Server.RequestTimeout = envconfig.GetEnvDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.ShutdownTimeout = envconfig.GetEnvDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.MaxBodyBytes = envconfig.GetEnvInt64("MAX_BODY_BYTES", c.Server.MaxBodyBytes)

	c.Database.Driver = db.Driver(envconfig.GetEnvString("DB_DRIVER", string(c.Database.Driver)))
	c.Database.DSN = envconfig.GetEnvString("DATABASE_URL", c.Database.DSN)
	c.Database.AutoMigrate = envconfig.GetEnvBool("DB_AUTO_MIGRATE", c.Database.AutoMigrate)
	c.Database.MaxOpenConns = envconfig.GetEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = envconfig.GetEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = envconfig.GetEnvDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)
	c.Database.ConnMaxIdleTime = envconfig.GetEnvDuration("DB_CONN_MAX_IDLE_TIME", c.Database.ConnMaxIdleTime)

	c.FeedHealth.FailureThreshold = envconfig.GetEnvDuration("FAILURE_THRESHOLD", c.FeedHealth.FailureThreshold)

	c.Delivery.StalePendingAfter = envconfig.GetEnvDuration("STALE_PENDING_AFTER", c.Delivery.StalePendingAfter)
	c.Delivery.StaleCheckSchedule = envconfig.GetEnvString("STALE_CHECK_SCHEDULE", c.Delivery.StaleCheckSchedule)
	c.Delivery.Timezone = envconfig.GetEnvString("STALE_CHECK_TZ", c.Delivery.Timezone)

	c.Log.Level = envconfig.GetEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envconfig.GetEnvString("LOG_FORMAT", c.Log.Format)

	c.Tracing.Enabled = envconfig.GetEnvBool("TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.SampleRatio = envconfig.GetEnvFloat("TRACING_SAMPLE_RATIO", c.Tracing.SampleRatio)
}

// Validate rejects settings the daemon cannot start with.
func (c *LedgerConfig) Validate() error {
	var errs []error

	if !c.Database.Driver.Valid() {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", db.DriverPostgres, db.DriverSQLite, c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("API_ADDR cannot be empty"))
	}
	if c.Server.MetricsAddr == "" {
		errs = append(errs, errors.New("METRICS_ADDR cannot be empty"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"REQUEST_TIMEOUT", c.Server.RequestTimeout},
		{"SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout},
		{"DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", c.Database.ConnMaxIdleTime},
	} {
		if err := envconfig.Positive(d.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
		}
	}
	if err := validate.InRange(c.Database.MaxOpenConns, 1, 1000); err != nil {
		errs = append(errs, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err))
	}
	if err := validate.InRange(c.Database.MaxIdleConns, 0, c.Database.MaxOpenConns); err != nil {
		errs = append(errs, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err))
	}
	if err := validate.InRange(c.Tracing.SampleRatio, 0, 1); err != nil {
		errs = append(errs, fmt.Errorf("TRACING_SAMPLE_RATIO: %w", err))
	}

	return errors.Join(errs...)
}

// applyFallbacks replaces invalid operational settings with their defaults and
// returns the names of the fields it replaced.
func (c *LedgerConfig) applyFallbacks() []string {
	var fields []string
	note := func(field, warning string) {
		fields = append(fields, field)
		slog.Warn("configuration fallback applied", slog.String("field", field), slog.String("warning", warning))
	}

	threshold := validate.WithFallback("failure_threshold", c.FeedHealth.FailureThreshold, DefaultFailureThreshold,
		envconfig.Within(time.Minute, 90*24*time.Hour))
	if threshold.Applied {
		note("failure_threshold", threshold.Warning)
	}
	c.FeedHealth.FailureThreshold = threshold.Value

	stale := validate.WithFallback("stale_pending_after", c.Delivery.StalePendingAfter, DefaultStalePendingAfter,
		envconfig.Positive)
	if stale.Applied {
		note("stale_pending_after", stale.Warning)
	}
	c.Delivery.StalePendingAfter = stale.Value

	schedule := validate.WithFallback("stale_check_schedule", c.Delivery.StaleCheckSchedule, DefaultStaleCheckSchedule,
		validate.ValidateCronSchedule)
	if schedule.Applied {
		note("stale_check_schedule", schedule.Warning)
	}
	c.Delivery.StaleCheckSchedule = schedule.Value

	tz := validate.WithFallback("timezone", c.Delivery.Timezone, DefaultTimezone, validate.ValidateTimezone)
	if tz.Applied {
		note("timezone", tz.Warning)
	}
	c.Delivery.Timezone = tz.Value

	return fields
}

// DB returns the settings for db.Open.
func (c *LedgerConfig) DB() db.Config {
	return db.Config{
		Driver: c.Database.Driver,
		DSN:    c.Database.DSN,
		Pool: db.ConnectionConfig{
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
		},
	}
}

// Location returns the time zone the stale pending schedule runs in.
func (c *LedgerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Delivery.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
