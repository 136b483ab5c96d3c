// Package main is the entry point for the floodwatch weather poller.
//
// The poller periodically fetches current conditions from the upstream
// weather API for every active sensor, stores the values as readings, and
// feeds each through the alert lifecycle. A Postgres advisory lock guards
// each cycle so only one replica ingests at a time.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"floodwatch/internal/config"
	"floodwatch/internal/db"
	"floodwatch/internal/external"
	"floodwatch/internal/observability"
	"floodwatch/internal/queue"
	"floodwatch/internal/risk"
	"floodwatch/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("floodwatch weather poller starting",
		"environment", cfg.Environment,
		"interval", cfg.Ingest.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	readings := db.NewReadingRepository(pool)
	thresholds := db.NewThresholdRepository(pool)
	alerts := db.NewAlertRepository(pool)
	areas := db.NewAreaRepository(pool)

	var publisher risk.EventPublisher
	var metrics *observability.Metrics
	if cfg.AWS.AlertQueueURL != "" || cfg.Observability.EnableMetrics {
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWS.Region)}
		if cfg.AWS.EndpointURL != "" {
			opts = append(opts, awsconfig.WithBaseEndpoint(cfg.AWS.EndpointURL))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return fmt.Errorf("loading AWS configuration: %w", err)
		}
		if cfg.AWS.AlertQueueURL != "" {
			publisher = queue.NewAlertPublisher(sqs.NewFromConfig(awsCfg), cfg.AWS.AlertQueueURL, logger)
		}
		if cfg.Observability.EnableMetrics {
			metrics = observability.NewMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
		}
	}

	lifecycle := risk.NewLifecycleManager(alerts, thresholds, areas, publisher, logger)

	poller := scheduler.NewWeatherPoller(scheduler.WeatherPollerConfig{
		Fetcher:  external.NewWeatherClient(nil, cfg.Ingest.WeatherBaseURL),
		Sensors:  readings,
		Alerts:   lifecycle,
		Guard:    scheduler.NewAdvisoryLockGuard(pool),
		Metrics:  metrics,
		Logger:   logger,
		Interval: cfg.Ingest.Interval,

		SettleDelay: cfg.Ingest.StartupDelay,
	})

	if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("poller: %w", err)
	}
	logger.Info("weather poller stopped cleanly")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
