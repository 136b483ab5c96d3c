package risk

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"floodwatch/internal/types"
)

// ReadingStore abstracts the reading queries the engine needs. Satisfied by
// db.ReadingRepository; tests use in-memory fakes.
type ReadingStore interface {
	// WindowStats computes sum/avg/max/count over [start, end] for one
	// parameter within a scope. An empty window returns Count == 0, never
	// zeroes masquerading as data.
	WindowStats(ctx context.Context, parameter types.Parameter, start, end time.Time, scope types.LocationScope) (types.WindowStats, error)
	// Latest returns the most recent reading, or a NoData error when the
	// parameter has no readings in scope.
	Latest(ctx context.Context, parameter types.Parameter, scope types.LocationScope) (*types.Reading, error)
	// LatestBefore returns the most recent reading at or before cutoff.
	LatestBefore(ctx context.Context, parameter types.Parameter, cutoff time.Time, scope types.LocationScope) (*types.Reading, error)
	// HighWaterSensorAreas returns distinct area IDs whose sensors reported
	// at least min for the parameter since the given time.
	HighWaterSensorAreas(ctx context.Context, parameter types.Parameter, min float64, since time.Time, scope types.LocationScope) ([]string, error)
}

// Aggregator answers windowed statistics queries over the reading store.
// It owns the window arithmetic (trailing durations are anchored to the
// injected clock) but delegates the scan itself to the store, which computes
// the aggregate in one pass per window.
type Aggregator struct {
	readings ReadingStore
	clock    clockwork.Clock
}

// NewAggregator creates an Aggregator. A nil clock defaults to the real one.
func NewAggregator(readings ReadingStore, clock clockwork.Clock) *Aggregator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Aggregator{readings: readings, clock: clock}
}

// Aggregate computes WindowStats for the parameter over [start, end] within
// the scope. The returned stats carry an explicit no-data state (Count == 0);
// callers apply their own defaults, the aggregator never substitutes zeroes.
func (a *Aggregator) Aggregate(ctx context.Context, parameter types.Parameter, start, end time.Time, scope types.LocationScope) (types.WindowStats, error) {
	if !parameter.Valid() {
		return types.WindowStats{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidParameter,
			"unknown parameter",
			nil,
			map[string]any{"parameter": string(parameter)},
		)
	}
	if end.Before(start) {
		return types.WindowStats{}, types.NewAppError(
			types.ErrCodeValidationInvalidWindow,
			"window end precedes start",
			nil,
		)
	}
	return a.readings.WindowStats(ctx, parameter, start, end, scope)
}

// Trailing computes WindowStats for the trailing duration ending now.
func (a *Aggregator) Trailing(ctx context.Context, parameter types.Parameter, d time.Duration, scope types.LocationScope) (types.WindowStats, error) {
	end := a.clock.Now().UTC()
	return a.Aggregate(ctx, parameter, end.Add(-d), end, scope)
}

// TrailingSet computes stats for several trailing windows of the same
// parameter anchored at the same instant, one store pass per window. The
// result is keyed by the requested duration.
func (a *Aggregator) TrailingSet(ctx context.Context, parameter types.Parameter, scope types.LocationScope, windows ...time.Duration) (map[time.Duration]types.WindowStats, error) {
	end := a.clock.Now().UTC()
	out := make(map[time.Duration]types.WindowStats, len(windows))
	for _, d := range windows {
		stats, err := a.Aggregate(ctx, parameter, end.Add(-d), end, scope)
		if err != nil {
			return nil, err
		}
		out[d] = stats
	}
	return out, nil
}

// Now exposes the aggregator's clock reading for callers that need window
// anchors consistent with its queries.
func (a *Aggregator) Now() time.Time {
	return a.clock.Now().UTC()
}
