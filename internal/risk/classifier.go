// Package risk implements the flood-risk assessment engine: windowed
// aggregation over sensor readings, threshold-ladder severity classification,
// probabilistic scoring with pluggable backends, affected-area resolution,
// alert lifecycle management, and year-over-year historical comparison.
//
// The package consumes narrow store interfaces (satisfied by internal/db) and
// never talks to the database directly, so every component is testable with
// in-memory fakes.
package risk

import (
	"floodwatch/internal/types"
)

// progressEpsilon floors the interpolation denominator so equal adjacent
// cut-points (a legal, if degenerate, ladder) cannot divide by zero.
const progressEpsilon = 1e-9

// Classify maps a reading value onto the threshold ladder. Cut-points are
// checked descending from Catastrophic; the first one met (inclusive) wins.
// A nil value or a value below Advisory classifies as TierNormal.
func Classify(value *float64, ts types.ThresholdSet) types.Tier {
	if value == nil {
		return types.TierNormal
	}
	v := *value
	cut := ts.Cutoffs()
	for tier := types.TierCatastrophic; tier >= types.TierAdvisory; tier-- {
		if v >= cut[tier-1] {
			return tier
		}
	}
	return types.TierNormal
}

// ProgressToNext interpolates how far a value has climbed from the current
// tier's floor toward the next cut-point, clamped to [0,100].
//
// Tier 5 has no next tier and reports 100%. A nil value reports Known=false:
// progress is unknown, which is not the same thing as 0%.
func ProgressToNext(value *float64, tier types.Tier, ts types.ThresholdSet) types.TierProgress {
	cut := ts.Cutoffs()

	if value == nil {
		return types.TierProgress{
			Known:        false,
			NextTierName: types.TierAdvisory.String(),
			NextTier:     &cut[0],
		}
	}

	if tier >= types.TierCatastrophic {
		zero := 0.0
		hundred := 100.0
		return types.TierProgress{
			Known:       true,
			Delta:       &zero,
			ProgressPct: &hundred,
		}
	}

	// Tier 0 interpolates from zero; higher tiers from their own cut-point.
	floor := 0.0
	if tier > types.TierNormal {
		floor = cut[tier-1]
	}
	next := cut[tier]
	nextName := (tier + 1).String()

	denom := next - floor
	if denom < progressEpsilon {
		denom = progressEpsilon
	}
	pct := (*value - floor) / denom * 100.0
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	delta := next - *value
	if delta < 0 {
		delta = 0
	}

	return types.TierProgress{
		Known:        true,
		NextTierName: nextName,
		NextTier:     &next,
		Delta:        &delta,
		ProgressPct:  &pct,
	}
}
