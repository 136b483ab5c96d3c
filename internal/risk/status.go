package risk

import (
	"context"
	"time"

	"floodwatch/internal/types"
)

// ClassifyCurrent classifies the latest reading of a parameter against its
// configured ladder and reports the dashboard view: thresholds, latest value,
// 24h statistics, severity, and progress toward the next tier.
//
// An unconfigured parameter surfaces NotFound. A configured parameter with no
// readings is not an error: the status carries a nil latest value, tier 0,
// and an unknown progress state.
func (s *Service) ClassifyCurrent(ctx context.Context, parameter types.Parameter, scope types.LocationScope) (*types.ParameterStatus, error) {
	ts, err := s.thresholds.Get(ctx, parameter)
	if err != nil {
		return nil, err
	}
	return s.parameterStatus(ctx, *ts, scope)
}

// Status reports the dashboard view for every configured parameter.
func (s *Service) Status(ctx context.Context, scope types.LocationScope) ([]types.ParameterStatus, error) {
	sets, err := s.thresholds.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.ParameterStatus, 0, len(sets))
	for _, ts := range sets {
		status, err := s.parameterStatus(ctx, ts, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, *status)
	}
	return out, nil
}

func (s *Service) parameterStatus(ctx context.Context, ts types.ThresholdSet, scope types.LocationScope) (*types.ParameterStatus, error) {
	var latestValue *float64
	var latestTime *time.Time
	latest, err := s.readings.Latest(ctx, ts.Parameter, scope)
	switch {
	case err == nil:
		latestValue = &latest.Value
		latestTime = &latest.Timestamp
	case types.IsNoData(err):
		// No readings yet; severity stays at tier 0 with unknown progress.
	default:
		return nil, err
	}

	stats, err := s.aggregator.Trailing(ctx, ts.Parameter, 24*time.Hour, scope)
	if err != nil {
		return nil, err
	}

	tier := Classify(latestValue, ts)
	return &types.ParameterStatus{
		Parameter:       ts.Parameter,
		Unit:            ts.Unit,
		Thresholds:      ts,
		LatestValue:     latestValue,
		LatestTimestamp: latestTime,
		Stats24h:        stats,
		Severity:        tier,
		SeverityName:    tier.String(),
		Progress:        ProgressToNext(latestValue, tier, ts),
	}, nil
}
