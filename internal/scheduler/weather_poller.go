// Package scheduler implements the periodic external-data ingestion services.
//
// The WeatherPoller owns the loop that refreshes sensor readings from the
// public weather API. It is an explicit service with injected dependencies
// and a database advisory lock as a single-instance guard, so running several
// replicas never double-ingests a cycle.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"floodwatch/internal/external"
	"floodwatch/internal/types"
)

// pollerLockKey is the advisory-lock key identifying the weather ingestion
// leader across replicas.
const pollerLockKey int64 = 7_100_021

// MinPollInterval is the floor on the configured polling interval.
const MinPollInterval = 60 * time.Second

// StartupSettleDelay is how long the poller waits before its first cycle,
// giving migrations and pool connections time to settle.
const StartupSettleDelay = 10 * time.Second

// WeatherFetcher abstracts the external weather API.
type WeatherFetcher interface {
	FetchCurrent(ctx context.Context, lat, lon float64) (*external.CurrentConditions, error)
}

// SensorStore abstracts the sensor and reading writes the poller needs.
type SensorStore interface {
	ListActiveSensors(ctx context.Context, sensorType types.Parameter) ([]types.Sensor, error)
	Insert(ctx context.Context, reading *types.Reading) error
}

// AlertRecorder runs the alert lifecycle for each ingested reading.
type AlertRecorder interface {
	RecordReading(ctx context.Context, parameter types.Parameter, value float64) (*types.Alert, error)
}

// LeaderGuard serializes poll cycles across replicas.
type LeaderGuard interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// IngestMetrics records how many readings each cycle stored.
type IngestMetrics interface {
	RecordIngestion(ctx context.Context, count int)
}

// WeatherPollerConfig holds the dependencies for creating a WeatherPoller.
type WeatherPollerConfig struct {
	Fetcher  WeatherFetcher
	Sensors  SensorStore
	Alerts   AlertRecorder // optional
	Guard    LeaderGuard   // optional; nil means single-instance deployment
	Metrics  IngestMetrics // optional
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Interval time.Duration

	// SettleDelay before the first cycle; defaults to StartupSettleDelay.
	SettleDelay time.Duration
}

// WeatherPoller periodically fetches current conditions for every active
// sensor and stores them as readings, feeding each through the alert
// lifecycle.
type WeatherPoller struct {
	fetcher  WeatherFetcher
	sensors  SensorStore
	alerts   AlertRecorder
	guard    LeaderGuard
	metrics  IngestMetrics
	clock    clockwork.Clock
	logger   *slog.Logger
	interval time.Duration
	settle   time.Duration
}

// NewWeatherPoller creates a WeatherPoller. Intervals below the floor are
// raised to it.
func NewWeatherPoller(cfg WeatherPollerConfig) *WeatherPoller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := cfg.Interval
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = StartupSettleDelay
	}
	return &WeatherPoller{
		fetcher:  cfg.Fetcher,
		sensors:  cfg.Sensors,
		alerts:   cfg.Alerts,
		guard:    cfg.Guard,
		metrics:  cfg.Metrics,
		clock:    clock,
		logger:   logger,
		interval: interval,
		settle:   settle,
	}
}

// Run loops until the context is cancelled: settle delay, then one poll cycle
// per interval. Cycle errors are logged, never fatal; the next tick retries.
func (p *WeatherPoller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "weather poller starting",
		"interval", p.interval.String(),
		"settle_delay", p.settle.String(),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(p.settle):
	}

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if count, err := p.PollOnce(ctx); err != nil {
			p.logger.ErrorContext(ctx, "poll cycle failed", "error", err)
		} else {
			p.logger.InfoContext(ctx, "poll cycle complete", "readings_stored", count)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}

// PollOnce runs a single ingestion cycle under the leader guard. Returns the
// number of readings stored; zero with no error when another replica holds
// the lead.
func (p *WeatherPoller) PollOnce(ctx context.Context) (int, error) {
	if p.guard != nil {
		got, err := p.guard.TryAcquire(ctx)
		if err != nil {
			return 0, err
		}
		if !got {
			p.logger.InfoContext(ctx, "another replica leads this cycle, skipping")
			return 0, nil
		}
		defer func() {
			if err := p.guard.Release(ctx); err != nil {
				p.logger.ErrorContext(ctx, "failed to release poller lock", "error", err)
			}
		}()
	}

	sensors, err := p.sensors.ListActiveSensors(ctx, "")
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, sensor := range sensors {
		value, ok, err := p.fetchFor(ctx, sensor)
		if err != nil {
			p.logger.ErrorContext(ctx, "weather fetch failed",
				"sensor_id", sensor.ID,
				"error", err,
			)
			continue
		}
		if !ok {
			continue
		}

		reading := &types.Reading{
			SensorID:  sensor.ID,
			Parameter: sensor.Type,
			Value:     value,
			Timestamp: p.clock.Now().UTC(),
		}
		if err := p.sensors.Insert(ctx, reading); err != nil {
			p.logger.ErrorContext(ctx, "failed to store reading",
				"sensor_id", sensor.ID,
				"error", err,
			)
			continue
		}
		stored++

		if p.alerts != nil {
			if _, err := p.alerts.RecordReading(ctx, sensor.Type, value); err != nil && !types.IsNotFound(err) {
				p.logger.ErrorContext(ctx, "alert lifecycle failed for ingested reading",
					"sensor_id", sensor.ID,
					"parameter", string(sensor.Type),
					"error", err,
				)
			}
		}
	}

	if p.metrics != nil {
		p.metrics.RecordIngestion(ctx, stored)
	}
	return stored, nil
}

// fetchFor maps a sensor's parameter onto the weather API's current
// conditions. Water level has no upstream signal; those sensors report
// through direct ingestion instead.
func (p *WeatherPoller) fetchFor(ctx context.Context, sensor types.Sensor) (float64, bool, error) {
	var conditions *external.CurrentConditions
	var err error

	switch sensor.Type {
	case types.ParameterRainfall, types.ParameterHumidity, types.ParameterTemperature:
		conditions, err = p.fetcher.FetchCurrent(ctx, sensor.Lat, sensor.Lon)
	default:
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	switch sensor.Type {
	case types.ParameterRainfall:
		return conditions.Precipitation, true, nil
	case types.ParameterHumidity:
		return conditions.Humidity, true, nil
	case types.ParameterTemperature:
		return conditions.Temperature, true, nil
	}
	return 0, false, nil
}
