package risk

import (
	"context"
	"fmt"
	"time"

	"floodwatch/internal/types"
)

// syntheticBaselineRatio is the fraction of the current average used as the
// historical baseline when no readings exist for the comparison window one
// year back. A documented approximation, not a measured value.
const syntheticBaselineRatio = 0.85

// Comparator contrasts a trailing window against the same calendar window 365
// days prior and recommends an action tier from the deviation. Its ladder is
// the threshold Tier scale; it is independent of, and never reconciled with,
// the scorer's probability bands.
type Comparator struct {
	aggregator *Aggregator
	thresholds ThresholdStore
}

// NewComparator creates a Comparator.
func NewComparator(aggregator *Aggregator, thresholds ThresholdStore) *Comparator {
	return &Comparator{aggregator: aggregator, thresholds: thresholds}
}

// Compare runs the year-over-year comparison for a parameter over the
// trailing days-day window at the given scope. days defaults to 7 when
// non-positive. Only rainfall and water level carry tier heuristics; other
// parameters report metrics with tier 0.
func (c *Comparator) Compare(ctx context.Context, parameter types.Parameter, days int, scope types.LocationScope) (*types.HistoryComparison, error) {
	if !parameter.Valid() {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidParameter,
			"unknown parameter",
			nil,
			map[string]any{"parameter": string(parameter)},
		)
	}
	if days <= 0 {
		days = 7
	}

	end := c.aggregator.Now()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)
	prevEnd := end.Add(-365 * 24 * time.Hour)
	prevStart := start.Add(-365 * 24 * time.Hour)

	current, err := c.aggregator.Aggregate(ctx, parameter, start, end, scope)
	if err != nil {
		return nil, err
	}
	historical, err := c.aggregator.Aggregate(ctx, parameter, prevStart, prevEnd, scope)
	if err != nil {
		return nil, err
	}

	currentAvg := 0.0
	currentMax := 0.0
	if current.HasData() {
		currentAvg = current.Avg
		currentMax = current.Max
	}

	// With no history, synthesize a baseline rather than dividing by the
	// void; the comparison is then explicitly flagged as synthesized.
	histAvg := currentAvg * syntheticBaselineRatio
	synthesized := true
	if historical.HasData() {
		histAvg = historical.Avg
		synthesized = false
	}

	deviationPct := 0.0
	if histAvg > 0 {
		deviationPct = (currentAvg - histAvg) / histAvg * 100.0
	}

	var (
		tier    types.Tier
		reasons []string
	)
	switch parameter {
	case types.ParameterRainfall:
		tier, reasons = rainfallSuggestion(currentAvg, currentMax, histAvg, deviationPct)
	case types.ParameterWaterLevel:
		var ts *types.ThresholdSet
		if got, err := c.thresholds.Get(ctx, parameter); err == nil {
			ts = got
		} else if !types.IsNotFound(err) {
			return nil, err
		}
		tier, reasons = waterLevelSuggestion(currentAvg, currentMax, histAvg, deviationPct, ts)
	default:
		tier = types.TierNormal
		reasons = []string{fmt.Sprintf("Average vs historical: %.1f vs %.1f (%.0f%% change)",
			currentAvg, histAvg, deviationPct)}
	}

	return &types.HistoryComparison{
		Parameter:       parameter,
		Days:            days,
		Subject:         fmt.Sprintf("Decision Support: %s recommended for %s", tier.String(), parameterTitle(parameter)),
		RecommendedTier: tier,
		Level:           tier.String(),
		SuggestedAction: tier.SuggestedAction(),
		Reasons:         reasons,
		Metrics: types.HistoryMetrics{
			CurrentAvg:    currentAvg,
			HistoricalAvg: histAvg,
			DeviationPct:  deviationPct,
			CurrentMax:    currentMax,
			Count:         current.Count,
		},
		WindowStart: start,
		WindowEnd:   end,
		Synthesized: synthesized,
	}, nil
}

// rainfallSuggestion combines absolute intensity with year-over-year
// deviation; either signal alone can trip a band.
func rainfallSuggestion(avg, max, histAvg, deviationPct float64) (types.Tier, []string) {
	var tier types.Tier
	var reasons []string
	switch {
	case max >= 150 || deviationPct >= 120:
		tier = types.TierEmergency
		reasons = append(reasons, "Extreme rainfall spikes or far above historical norms")
	case max >= 100 || deviationPct >= 90:
		tier = types.TierWarning
		reasons = append(reasons, "Very heavy rainfall and substantially above historical norms")
	case avg >= 25 || deviationPct >= 50:
		tier = types.TierWatch
		reasons = append(reasons, "Sustained heavy rainfall relative to historical averages")
	case avg >= 10 || deviationPct >= 20:
		tier = types.TierAdvisory
		reasons = append(reasons, "Rainfall trending above normal levels")
	default:
		tier = types.TierNormal
		reasons = append(reasons, "Rainfall near or below historical norms")
	}
	if max > 0 {
		reasons = append(reasons, fmt.Sprintf("Max 24h rainfall observed: %.1f mm", max))
	}
	reasons = append(reasons, fmt.Sprintf("Average vs historical: %.1f vs %.1f mm (%.0f%% change)",
		avg, histAvg, deviationPct))
	return tier, reasons
}

// waterLevelSuggestion prefers the configured ladder when one exists,
// classifying the window maximum against it; otherwise it falls back to
// absolute-level and deviation heuristics.
func waterLevelSuggestion(avg, max, histAvg, deviationPct float64, ts *types.ThresholdSet) (types.Tier, []string) {
	var tier types.Tier
	var reasons []string
	unit := "m"

	if ts != nil {
		unit = ts.Unit
		tier = Classify(&max, *ts)
		if tier == types.TierNormal {
			reasons = append(reasons, "Water level below advisory threshold")
		} else {
			reasons = append(reasons, fmt.Sprintf("Water level reached %s threshold",
				lowerFirst(tier.String())))
		}
	} else {
		switch {
		case max >= 1.8 || deviationPct >= 80:
			tier = types.TierEmergency
			reasons = append(reasons, "Water level far above typical levels")
		case max >= 1.5 || deviationPct >= 50:
			tier = types.TierWarning
			reasons = append(reasons, "Water level significantly above typical levels")
		case max >= 1.2 || deviationPct >= 20:
			tier = types.TierWatch
			reasons = append(reasons, "Water level trending higher than normal")
		case max >= 1.0 || deviationPct >= 10:
			tier = types.TierAdvisory
			reasons = append(reasons, "Water level slightly above normal")
		default:
			tier = types.TierNormal
			reasons = append(reasons, "Water level within normal range")
		}
	}

	reasons = append(reasons, fmt.Sprintf("Max water level: %.2f %s", max, unit))
	reasons = append(reasons, fmt.Sprintf("Average vs historical: %.2f vs %.2f (%.0f%% change)",
		avg, histAvg, deviationPct))
	return tier, reasons
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
