package risk

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"floodwatch/internal/types"
)

// testLogger returns a quiet logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fp(v float64) *float64 { return &v }

// ============================================================
// Mock Implementations
// ============================================================

// mockReadingStore is an in-memory ReadingStore backed by a reading slice.
type mockReadingStore struct {
	readings       []types.Reading
	highWaterAreas []string

	statsErr error
	calls    int
}

func (m *mockReadingStore) WindowStats(_ context.Context, parameter types.Parameter, start, end time.Time, _ types.LocationScope) (types.WindowStats, error) {
	m.calls++
	if m.statsErr != nil {
		return types.WindowStats{}, m.statsErr
	}
	var stats types.WindowStats
	for _, r := range m.readings {
		if r.Parameter != parameter || r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		stats.Sum += r.Value
		if r.Value > stats.Max || stats.Count == 0 {
			stats.Max = r.Value
		}
		stats.Count++
	}
	if stats.Count > 0 {
		stats.Avg = stats.Sum / float64(stats.Count)
	}
	return stats, nil
}

func (m *mockReadingStore) Latest(_ context.Context, parameter types.Parameter, _ types.LocationScope) (*types.Reading, error) {
	var latest *types.Reading
	for i := range m.readings {
		r := &m.readings[i]
		if r.Parameter != parameter {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	if latest == nil {
		return nil, types.NewAppError(types.ErrCodeNoData, "no readings", nil)
	}
	return latest, nil
}

func (m *mockReadingStore) LatestBefore(_ context.Context, parameter types.Parameter, cutoff time.Time, _ types.LocationScope) (*types.Reading, error) {
	var latest *types.Reading
	for i := range m.readings {
		r := &m.readings[i]
		if r.Parameter != parameter || r.Timestamp.After(cutoff) {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	if latest == nil {
		return nil, types.NewAppError(types.ErrCodeNoData, "no readings", nil)
	}
	return latest, nil
}

func (m *mockReadingStore) HighWaterSensorAreas(_ context.Context, _ types.Parameter, _ float64, _ time.Time, _ types.LocationScope) ([]string, error) {
	return m.highWaterAreas, nil
}

// mockThresholdStore holds per-parameter ladders.
type mockThresholdStore struct {
	sets map[types.Parameter]types.ThresholdSet
}

func newMockThresholdStore(sets ...types.ThresholdSet) *mockThresholdStore {
	m := &mockThresholdStore{sets: make(map[types.Parameter]types.ThresholdSet)}
	for _, ts := range sets {
		m.sets[ts.Parameter] = ts
	}
	return m
}

func (m *mockThresholdStore) Get(_ context.Context, parameter types.Parameter) (*types.ThresholdSet, error) {
	ts, ok := m.sets[parameter]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundThreshold, "no thresholds configured", nil)
	}
	return &ts, nil
}

func (m *mockThresholdStore) List(_ context.Context) ([]types.ThresholdSet, error) {
	out := make([]types.ThresholdSet, 0, len(m.sets))
	for _, ts := range m.sets {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Parameter < out[j].Parameter })
	return out, nil
}

// mockAlertStore is an in-memory AlertStore plus AlertHistory.
type mockAlertStore struct {
	alerts        []*types.Alert
	recentAreaIDs []string

	createCalls   int
	escalateCalls int
	nextID        int
}

func (m *mockAlertStore) FindActiveByHazard(_ context.Context, hazard types.Parameter) (*types.Alert, error) {
	for _, a := range m.alerts {
		if a.Active && a.HazardType == hazard {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockAlertStore) Create(_ context.Context, alert *types.Alert) error {
	m.createCalls++
	m.nextID++
	alert.IssuedAt = time.Now().UTC()
	alert.UpdatedAt = alert.IssuedAt
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *mockAlertStore) Escalate(_ context.Context, id string, severity types.Tier, description string) (*types.Alert, error) {
	m.escalateCalls++
	for _, a := range m.alerts {
		if a.ID == id {
			if severity > a.Severity {
				a.Severity = severity
				a.Description = description
				a.UpdatedAt = time.Now().UTC()
			}
			return a, nil
		}
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
}

func (m *mockAlertStore) RecentAlertAreaIDs(_ context.Context, _ types.Tier, _ time.Time, _ types.LocationScope) ([]string, error) {
	return m.recentAreaIDs, nil
}

// mockAreaStore serves a fixed area list, kept name-sorted like the real
// repository.
type mockAreaStore struct {
	areas []types.Area
}

func newMockAreaStore(names ...string) *mockAreaStore {
	m := &mockAreaStore{}
	for i, name := range names {
		m.areas = append(m.areas, types.Area{
			ID:   "area_" + string(rune('a'+i)),
			Name: name,
		})
	}
	sort.Slice(m.areas, func(i, j int) bool { return m.areas[i].Name < m.areas[j].Name })
	return m
}

func (m *mockAreaStore) GetArea(_ context.Context, id string) (*types.Area, error) {
	for _, a := range m.areas {
		if a.ID == id {
			area := a
			return &area, nil
		}
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundArea, "area not found", nil)
}

func (m *mockAreaStore) ListAreas(_ context.Context, _ types.LocationScope) ([]types.Area, error) {
	out := make([]types.Area, len(m.areas))
	copy(out, m.areas)
	return out, nil
}

func (m *mockAreaStore) ListAreasByIDs(_ context.Context, ids []string) ([]types.Area, error) {
	var out []types.Area
	for _, a := range m.areas {
		for _, id := range ids {
			if a.ID == id {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

// mockPublisher records published events.
type mockPublisher struct {
	events []types.AlertEvent
	err    error
}

func (m *mockPublisher) PublishAlertEvent(_ context.Context, event types.AlertEvent) error {
	m.events = append(m.events, event)
	return m.err
}

// mockBackend is a scriptable scoring backend.
type mockBackend struct {
	name       string
	assessment *types.RiskAssessment
	err        error
	calls      int
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Predict(_ context.Context, _ types.FeatureSet) (*types.RiskAssessment, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	a := *m.assessment
	return &a, nil
}

// mockPredictor is a scriptable AreaPredictor.
type mockPredictor struct {
	areas []types.AffectedArea
	err   error
	calls int
}

func (m *mockPredictor) PredictAffectedAreas(_ context.Context, _ types.LocationScope, _ float64) ([]types.AffectedArea, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.areas, nil
}

// rainfallLadder is the standard test ladder for rainfall, in mm.
func rainfallLadder() types.ThresholdSet {
	return types.ThresholdSet{
		Parameter:    types.ParameterRainfall,
		Unit:         "mm",
		Advisory:     10,
		Watch:        25,
		Warning:      50,
		Emergency:    100,
		Catastrophic: 150,
	}
}

// waterLadder is the standard test ladder for water level, in meters.
func waterLadder() types.ThresholdSet {
	return types.ThresholdSet{
		Parameter:    types.ParameterWaterLevel,
		Unit:         "m",
		Advisory:     1.0,
		Watch:        1.2,
		Warning:      1.5,
		Emergency:    1.8,
		Catastrophic: 2.2,
	}
}
