package risk

import (
	"context"
	"time"

	"floodwatch/internal/types"
)

// AreaStore abstracts the reference-data reads the resolver and lifecycle
// manager need. Satisfied by db.AreaRepository.
type AreaStore interface {
	GetArea(ctx context.Context, id string) (*types.Area, error)
	// ListAreas returns areas in scope ordered by name. The ordering is part
	// of the contract: truncated fallback selections take the first N names.
	ListAreas(ctx context.Context, scope types.LocationScope) ([]types.Area, error)
	ListAreasByIDs(ctx context.Context, ids []string) ([]types.Area, error)
}

// AreaPredictor is an optional external capability that predicts affected
// areas directly. A nil predictor, an error, or an empty result all advance
// the resolver to its next fallback stage.
type AreaPredictor interface {
	PredictAffectedAreas(ctx context.Context, scope types.LocationScope, probability float64) ([]types.AffectedArea, error)
}

// AlertHistory is the slice of alert storage the resolver reads: which areas
// were attached to recent alerts of at least a given severity.
type AlertHistory interface {
	RecentAlertAreaIDs(ctx context.Context, minSeverity types.Tier, since time.Time, scope types.LocationScope) ([]string, error)
}

const (
	// resolveProbabilityFloor gates the resolver: below this probability no
	// area list is produced at all.
	resolveProbabilityFloor = 30

	// recentAlertLookback bounds the recent-alert fallback stage.
	recentAlertLookback = 72 * time.Hour

	// highWaterMark is the water level from which sensor locations count as
	// flooding evidence for the fallback selection.
	highWaterMark = 0.5

	highWaterFallbackCount = 5
	quietFallbackCount     = 3
)

// Resolver produces the ranked affected-area list for an assessment using a
// layered fallback chain: external predictor, then areas of comparable recent
// alerts, then high-water sensor locations (or an alphabetical slice of the
// scope when even those are absent).
type Resolver struct {
	areas     AreaStore
	alerts    AlertHistory
	readings  ReadingStore
	predictor AreaPredictor // may be nil
}

// NewResolver creates a Resolver. predictor may be nil.
func NewResolver(areas AreaStore, alerts AlertHistory, readings ReadingStore, predictor AreaPredictor) *Resolver {
	return &Resolver{areas: areas, alerts: alerts, readings: readings, predictor: predictor}
}

// Resolve returns affected areas for the assessment within scope, or nil when
// the probability is below the reporting floor. A scope naming a single area
// short-circuits the chain: that area is returned regardless of stage.
func (r *Resolver) Resolve(ctx context.Context, assessment *types.RiskAssessment, scope types.LocationScope, now time.Time) ([]types.AffectedArea, error) {
	if assessment == nil || assessment.Probability < resolveProbabilityFloor {
		return nil, nil
	}

	if scope.Kind == types.ScopeArea {
		area, err := r.areas.GetArea(ctx, scope.AreaID)
		if err != nil {
			return nil, err
		}
		return tagAreas([]types.Area{*area}, assessment.Probability), nil
	}

	// Stage 1: external predictor, accepted as-is when it answers.
	if r.predictor != nil {
		predicted, err := r.predictor.PredictAffectedAreas(ctx, scope, assessment.Probability)
		if err == nil && len(predicted) > 0 {
			return predicted, nil
		}
	}

	// Stage 2: areas attached to recent alerts of comparable severity. The
	// band value is compared numerically against the alert ladder here; the
	// scales differ but the deliberate effect is "alerts at least this
	// serious".
	minSeverity := types.Tier(assessment.Band)
	ids, err := r.alerts.RecentAlertAreaIDs(ctx, minSeverity, now.Add(-recentAlertLookback), scope)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		areas, err := r.areas.ListAreasByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(areas) > 0 {
			return tagAreas(areas, assessment.Probability), nil
		}
	}

	// Stage 3: sensor evidence. With high water, prefer areas hosting
	// high-reading water sensors; failing that, the first five areas in the
	// scope by name. Without high water, the first three.
	if hasHighWater(ctx, r.readings, scope) {
		sensorAreaIDs, err := r.readings.HighWaterSensorAreas(
			ctx, types.ParameterWaterLevel, highWaterMark, now.Add(-24*time.Hour), scope)
		if err != nil {
			return nil, err
		}
		if len(sensorAreaIDs) > 0 {
			areas, err := r.areas.ListAreasByIDs(ctx, sensorAreaIDs)
			if err != nil {
				return nil, err
			}
			if len(areas) > 0 {
				return tagAreas(areas, assessment.Probability), nil
			}
		}
		return r.alphabeticalFallback(ctx, scope, highWaterFallbackCount, assessment.Probability)
	}
	return r.alphabeticalFallback(ctx, scope, quietFallbackCount, assessment.Probability)
}

// hasHighWater reports whether the latest water level in scope exceeds the
// high-water mark. A missing reading counts as quiet.
func hasHighWater(ctx context.Context, readings ReadingStore, scope types.LocationScope) bool {
	latest, err := readings.Latest(ctx, types.ParameterWaterLevel, scope)
	return err == nil && latest.Value > highWaterMark
}

func (r *Resolver) alphabeticalFallback(ctx context.Context, scope types.LocationScope, n int, probability float64) ([]types.AffectedArea, error) {
	areas, err := r.areas.ListAreas(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(areas) > n {
		areas = areas[:n]
	}
	return tagAreas(areas, probability), nil
}

// tagAreas annotates areas with their per-area risk level and evacuation
// center count derived from the overall probability.
func tagAreas(areas []types.Area, probability float64) []types.AffectedArea {
	level := types.AreaRiskLow
	switch {
	case probability >= 70:
		level = types.AreaRiskHigh
	case probability >= 40:
		level = types.AreaRiskModerate
	}

	out := make([]types.AffectedArea, 0, len(areas))
	for _, a := range areas {
		out = append(out, types.AffectedArea{
			Area:              a,
			RiskLevel:         level,
			EvacuationCenters: level.EvacuationCenters(),
		})
	}
	return out
}
