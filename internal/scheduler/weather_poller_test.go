package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"floodwatch/internal/external"
	"floodwatch/internal/types"
)

// --- Mock Implementations ---

type mockFetcher struct {
	conditions external.CurrentConditions
	err        error
	errFirst   bool // fail only the first call
	calls      int
}

func (m *mockFetcher) FetchCurrent(_ context.Context, _, _ float64) (*external.CurrentConditions, error) {
	m.calls++
	if m.err != nil && (!m.errFirst || m.calls == 1) {
		return nil, m.err
	}
	c := m.conditions
	return &c, nil
}

type mockSensorStore struct {
	mu        sync.Mutex
	sensors   []types.Sensor
	listErr   error
	insertErr error
	inserted  []types.Reading
	listCalls int
}

func (m *mockSensorStore) ListActiveSensors(_ context.Context, _ types.Parameter) ([]types.Sensor, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.sensors, nil
}

func (m *mockSensorStore) Insert(_ context.Context, reading *types.Reading) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	m.inserted = append(m.inserted, *reading)
	m.mu.Unlock()
	return nil
}

func (m *mockSensorStore) listed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

type mockAlertRecorder struct {
	err   error
	calls int
}

func (m *mockAlertRecorder) RecordReading(_ context.Context, _ types.Parameter, _ float64) (*types.Alert, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return nil, nil
}

type mockGuard struct {
	acquired bool
	err      error
	acquires int
	releases int
}

func (m *mockGuard) TryAcquire(_ context.Context) (bool, error) {
	m.acquires++
	return m.acquired, m.err
}

func (m *mockGuard) Release(_ context.Context) error {
	m.releases++
	return nil
}

type mockIngestMetrics struct {
	counts []int
}

func (m *mockIngestMetrics) RecordIngestion(_ context.Context, count int) {
	m.counts = append(m.counts, count)
}

// --- Tests ---

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func weatherSensor(id string, parameter types.Parameter) types.Sensor {
	return types.Sensor{ID: id, Type: parameter, Lat: 14.6, Lon: 121.0, Active: true}
}

func TestPollOnce_StoresOneReadingPerSensor(t *testing.T) {
	now := time.Date(2026, time.March, 15, 6, 0, 0, 0, time.UTC)
	fetcher := &mockFetcher{conditions: external.CurrentConditions{
		Temperature:   31.5,
		Humidity:      88,
		Precipitation: 4.2,
	}}
	store := &mockSensorStore{sensors: []types.Sensor{
		weatherSensor("sns_rain", types.ParameterRainfall),
		weatherSensor("sns_hum", types.ParameterHumidity),
		weatherSensor("sns_temp", types.ParameterTemperature),
	}}
	metrics := &mockIngestMetrics{}

	poller := NewWeatherPoller(WeatherPollerConfig{
		Fetcher: fetcher,
		Sensors: store,
		Metrics: metrics,
		Clock:   clockwork.NewFakeClockAt(now),
		Logger:  quietLogger(),
	})

	count, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error: %v", err)
	}
	if count != 3 {
		t.Fatalf("stored %d readings, want 3", count)
	}
	if len(store.inserted) != 3 {
		t.Fatalf("inserted %d readings", len(store.inserted))
	}

	byID := map[string]types.Reading{}
	for _, r := range store.inserted {
		byID[r.SensorID] = r
	}
	if byID["sns_rain"].Value != 4.2 {
		t.Errorf("rainfall value = %v, want precipitation 4.2", byID["sns_rain"].Value)
	}
	if byID["sns_hum"].Value != 88 {
		t.Errorf("humidity value = %v, want 88", byID["sns_hum"].Value)
	}
	if byID["sns_temp"].Value != 31.5 {
		t.Errorf("temperature value = %v, want 31.5", byID["sns_temp"].Value)
	}
	if !byID["sns_rain"].Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want clock time %v", byID["sns_rain"].Timestamp, now)
	}
	if len(metrics.counts) != 1 || metrics.counts[0] != 3 {
		t.Errorf("metrics counts = %v, want [3]", metrics.counts)
	}
}

func TestPollOnce_SkipsWaterLevelSensors(t *testing.T) {
	fetcher := &mockFetcher{}
	store := &mockSensorStore{sensors: []types.Sensor{
		weatherSensor("sns_water", types.ParameterWaterLevel),
	}}

	poller := NewWeatherPoller(WeatherPollerConfig{
		Fetcher: fetcher,
		Sensors: store,
		Logger:  quietLogger(),
	})

	count, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error: %v", err)
	}
	if count != 0 || len(store.inserted) != 0 {
		t.Errorf("stored %d readings, want water sensors skipped", count)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times for a water sensor", fetcher.calls)
	}
}

func TestPollOnce_SkipsWhenAnotherReplicaLeads(t *testing.T) {
	store := &mockSensorStore{sensors: []types.Sensor{
		weatherSensor("sns_rain", types.ParameterRainfall),
	}}
	guard := &mockGuard{acquired: false}

	poller := NewWeatherPoller(WeatherPollerConfig{
		Fetcher: &mockFetcher{},
		Sensors: store,
		Guard:   guard,
		Logger:  quietLogger(),
	})

	count, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error: %v", err)
	}
	if count != 0 {
		t.Errorf("stored %d readings without the lock", count)
	}
	if store.listCalls != 0 {
		t.Error("listed sensors without holding the lock")
	}
	if guard.releases != 0 {
		t.Errorf("released a lock that was never acquired, %d times", guard.releases)
	}
}

func TestPollOnce_ReleasesGuardAfterCycle(t *testing.T) {
	guard := &mockGuard{acquired: true}
	poller := NewWeatherPoller(WeatherPollerConfig{
		Fetcher: &mockFetcher{},
		Sensors: &mockSensorStore{},
		Guard:   guard,
		Logger:  quietLogger(),
	})

	if _, err := poller.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce() error: %v", err)
	}
	if guard.acquires != 1 || guard.releases != 1 {
		t.Errorf("acquires/releases = %d/%d, want 1/1", guard.acquires, guard.releases)
	}
}

func TestPollOnce_GuardErrorFailsCycle(t *testing.T) {
	guard := &mockGuard{err: errors.New("connection lost")}
	poller := NewWeatherPoller(WeatherPollerConfig{
		Fetcher: &mockFetcher{},
		Sensors: &mockSensorStore{},
		Guard:   guard,
		Logger:  quietLogger(),
	})

	if _, err := poller.PollOnce(context.Background()); err == nil {
		t.Fatal("expected an error when the guard fails")
	}
}

func TestPollOnce_FetchFailureSkipsSensorOnly(t *testing.T) {
	fetcher := &mockFetcher{
		conditions: external.CurrentConditions{Precipitation: 2.0},
		err:        errors.New("upstream 503"),
		errFirst:   true,
	}
	store := &mockSensorStore{sensors: []types.Sensor{
		weatherSensor("sns_a", types.ParameterRainfall),
		weatherSensor("sns_b", types.ParameterRainfall),
	}}

	poller := NewWeatherPoller(WeatherPollerConfig{
		Fetcher: fetcher,
		Sensors: store,
		Logger:  quietLogger(),
	})

	count, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error: %v", err)
	}
	if count != 1 {
		t.Errorf("stored %d readings, want the surviving sensor only", count)
	}
	if len(store.inserted) != 1 || store.inserted[0].SensorID != "sns_b" {
		t.Errorf("inserted = %+v", store.inserted)
	}
}

func TestPollOnce_LifecycleNotFoundIsSwallowed(t *testing.T) {
	recorder := &mockAlertRecorder{
		err: types.NewAppError(types.ErrCodeNotFoundThreshold, "no ladder", nil),
	}
	store := &mockSensorStore{sensors: []types.Sensor{
		weatherSensor("sns_rain", types.ParameterRainfall),
	}}

	poller := NewWeatherPoller(WeatherPollerConfig{
		Fetcher: &mockFetcher{conditions: external.CurrentConditions{Precipitation: 12}},
		Sensors: store,
		Alerts:  recorder,
		Logger:  quietLogger(),
	})

	count, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error: %v", err)
	}
	if count != 1 {
		t.Errorf("stored %d readings, want 1", count)
	}
	if recorder.calls != 1 {
		t.Errorf("lifecycle called %d times, want 1", recorder.calls)
	}
}

func TestNewWeatherPoller_FloorsIntervalAndSettle(t *testing.T) {
	poller := NewWeatherPoller(WeatherPollerConfig{
		Fetcher:  &mockFetcher{},
		Sensors:  &mockSensorStore{},
		Interval: 5 * time.Second,
		Logger:   quietLogger(),
	})
	if poller.interval != MinPollInterval {
		t.Errorf("interval = %v, want floor %v", poller.interval, MinPollInterval)
	}
	if poller.settle != StartupSettleDelay {
		t.Errorf("settle = %v, want default %v", poller.settle, StartupSettleDelay)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	poller := NewWeatherPoller(WeatherPollerConfig{
		Fetcher: &mockFetcher{},
		Sensors: &mockSensorStore{},
		Clock:   clock,
		Logger:  quietLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_PollsAfterSettleDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &mockSensorStore{}
	poller := NewWeatherPoller(WeatherPollerConfig{
		Fetcher:     &mockFetcher{},
		Sensors:     store,
		Clock:       clock,
		Logger:      quietLogger(),
		SettleDelay: 10 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	// The first cycle runs once the settle delay elapses.
	clock.BlockUntil(1)
	clock.Advance(10 * time.Second)

	deadline := time.After(2 * time.Second)
	for store.listed() == 0 {
		select {
		case <-deadline:
			t.Fatal("no poll cycle after the settle delay")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
