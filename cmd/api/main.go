// Package main is the entry point for the floodwatch API server.
//
// It loads configuration, connects the Postgres pool, wires the risk engine
// with its repositories and optional remote inference backends, mounts the
// HTTP chassis, and serves until interrupted. Graceful shutdown is handled
// via SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"

	"floodwatch/internal/api/handlers"
	"floodwatch/internal/config"
	"floodwatch/internal/core"
	"floodwatch/internal/db"
	"floodwatch/internal/external"
	"floodwatch/internal/observability"
	"floodwatch/internal/queue"
	"floodwatch/internal/risk"
	"floodwatch/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("floodwatch API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
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

	// Optional AWS integrations: alert event publishing and metrics.
	var publisher risk.EventPublisher
	var metrics *observability.Metrics
	if cfg.AWS.AlertQueueURL != "" || cfg.Observability.EnableMetrics {
		awsCfg, err := loadAWSConfig(ctx, cfg)
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
	if metrics != nil {
		publisher = &meteredPublisher{next: publisher, metrics: metrics}
	}

	// Remote inference backends, registered alongside the built-in heuristic
	// when a model-serving endpoint is configured.
	registry := risk.NewRegistry()
	var predictor risk.AreaPredictor
	if cfg.Inference.BaseURL != "" {
		inference := external.NewInferenceClient(nil, cfg.Inference.BaseURL, cfg.Inference.APIKey)
		for _, algorithm := range external.KnownAlgorithms {
			registry.Register(external.NewRemoteBackend(algorithm, inference))
		}
		predictor = inference
		logger.Info("remote inference backends registered",
			"base_url", cfg.Inference.BaseURL,
			"backends", external.KnownAlgorithms,
		)
	}

	defaultBackend := cfg.Inference.DefaultBackend
	if cfg.Inference.BaseURL == "" {
		defaultBackend = risk.HeuristicName
	}

	service := risk.NewService(risk.ServiceConfig{
		Readings:       readings,
		Thresholds:     thresholds,
		Alerts:         alerts,
		AlertHist:      alerts,
		Areas:          areas,
		Registry:       registry,
		Predictor:      predictor,
		Publisher:      publisher,
		Logger:         logger,
		DefaultBackend: defaultBackend,
		BackendTimeout: cfg.Inference.Timeout,
	})

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Pingers = append(srv.Pingers, core.NamedPinger{Name: "database", Pinger: pool})

	predictionHandler := handlers.NewPredictionHandler(service, metrics, logger)
	readingHandler := handlers.NewReadingHandler(readings, service, metrics, srv.Validator, logger)
	thresholdHandler := handlers.NewThresholdHandler(service, thresholds, srv.Validator, logger)
	historyHandler := handlers.NewHistoryHandler(service, logger)
	alertHandler := handlers.NewAlertHandler(alerts, logger)
	areaHandler := handlers.NewAreaHandler(areas, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { predictionHandler.RegisterRoutes(r) },
		func(r chi.Router) { readingHandler.RegisterRoutes(r) },
		func(r chi.Router) { thresholdHandler.RegisterRoutes(r) },
		func(r chi.Router) { historyHandler.RegisterRoutes(r) },
		func(r chi.Router) { alertHandler.RegisterRoutes(r) },
		func(r chi.Router) { areaHandler.RegisterRoutes(r) },
	)

	srv.MountRoutes()

	return serveHTTP(ctx, srv, cfg, logger)
}

// loadAWSConfig builds the SDK config, honoring a LocalStack endpoint when set.
func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.AWS.EndpointURL))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// serveHTTP runs the server until the context is cancelled or the listener
// fails, then shuts down gracefully.
func serveHTTP(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// meteredPublisher counts alert lifecycle events before forwarding them to
// the queue. next may be nil when no queue is configured.
type meteredPublisher struct {
	next    risk.EventPublisher
	metrics *observability.Metrics
}

func (p *meteredPublisher) PublishAlertEvent(ctx context.Context, event types.AlertEvent) error {
	p.metrics.RecordAlertEvent(ctx, event.Kind, event.HazardType)
	if p.next == nil {
		return nil
	}
	return p.next.PublishAlertEvent(ctx, event)
}

// newLogger creates a structured slog.Logger for the given log level.
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
