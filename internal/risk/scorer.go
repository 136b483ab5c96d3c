package risk

import (
	"context"
	"fmt"
	"time"

	"floodwatch/internal/types"
)

// Backend is a pluggable scoring strategy. Implementations return a full
// RiskAssessment or an error; the engine converts any error (or timeout)
// into the heuristic fallback and never surfaces it from Assess.
type Backend interface {
	Name() string
	Predict(ctx context.Context, features types.FeatureSet) (*types.RiskAssessment, error)
}

// HeuristicName is the registry key of the built-in deterministic scorer.
const HeuristicName = "heuristic"

// assumedFloodLevel is the water level, in meters, treated as flood stage by
// the time-to-flood estimate.
const assumedFloodLevel = 1.8

// riseRatePerMM converts rainfall rate (mm/h) into estimated water level rise
// (m/h). A crude hydrological shortcut, kept deliberately simple.
const riseRatePerMM = 0.02

// Heuristic is the always-available fallback scorer. It is a pure function of
// the FeatureSet: probability accumulates from four independently capped
// factors (24h rainfall, sustained 72h rainfall, current water level, and
// humidity as a soil-saturation proxy), total capped at 100.
type Heuristic struct{}

// Name implements Backend.
func (Heuristic) Name() string { return HeuristicName }

// Predict implements Backend. It never fails.
func (Heuristic) Predict(_ context.Context, f types.FeatureSet) (*types.RiskAssessment, error) {
	probability := 0.0

	// Uses strict > comparisons throughout: a value exactly at a cut-off
	// earns the next lower contribution.
	if f.Rainfall24h != nil {
		switch r := *f.Rainfall24h; {
		case r > 50:
			probability += 30
		case r > 25:
			probability += 20
		case r > 10:
			probability += 10
		}
	}
	if f.Rainfall72h != nil {
		switch r := *f.Rainfall72h; {
		case r > 100:
			probability += 25
		case r > 50:
			probability += 15
		case r > 25:
			probability += 5
		}
	}
	if f.WaterLevel != nil {
		switch w := *f.WaterLevel; {
		case w > 1.5:
			probability += 30
		case w > 1.0:
			probability += 20
		case w > 0.5:
			probability += 10
		}
	}
	if f.Humidity != nil {
		switch h := *f.Humidity; {
		case h > 90:
			probability += 15
		case h > 80:
			probability += 10
		case h > 70:
			probability += 5
		}
	}
	if probability > 100 {
		probability = 100
	}

	assessment := &types.RiskAssessment{
		Probability:         probability,
		ContributingFactors: contributingFactors(f, probability),
		Source:              HeuristicName,
	}
	assessment.Band, assessment.Impact = bandForProbability(probability)
	assessment.BandName = assessment.Band.String()

	if hours := hoursToFlood(f, probability); hours != nil {
		assessment.HoursToFlood = hours
	}
	return assessment, nil
}

// hoursToFlood estimates time until flood stage. Only computed when the
// situation is already serious (probability >= 60) and both the current water
// level and the 24h average rainfall are known.
func hoursToFlood(f types.FeatureSet, probability float64) *float64 {
	if probability < 60 || f.WaterLevel == nil || f.Rainfall24hAvg == nil {
		return nil
	}
	levelGap := assumedFloodLevel - *f.WaterLevel
	if levelGap < 0 {
		levelGap = 0
	}
	rainPerHour := *f.Rainfall24hAvg / 24
	riseRate := rainPerHour * riseRatePerMM
	if riseRate <= 0 {
		return nil
	}
	hours := levelGap / riseRate
	if hours < 1 {
		hours = 1
	}
	if hours > 48 {
		hours = 48
	}
	return &hours
}

// contributingFactors renders the ordered human-readable factor list. Each
// signal has its own reporting threshold, looser than the probability
// cut-offs, so near-miss conditions still show up in the narrative. Fewer
// than two real factors gets a single filler line.
func contributingFactors(f types.FeatureSet, probability float64) []string {
	var factors []string
	if f.Rainfall24h != nil && *f.Rainfall24h > 10 {
		factors = append(factors, fmt.Sprintf("Rainfall in the past 24 hours: %.1fmm", *f.Rainfall24h))
	}
	if f.Rainfall72h != nil && *f.Rainfall72h > 30 {
		factors = append(factors, fmt.Sprintf("Sustained rainfall over 72 hours: %.1fmm", *f.Rainfall72h))
	}
	if f.WaterLevel != nil && *f.WaterLevel > 0.8 {
		factors = append(factors, fmt.Sprintf("Elevated water level: %.2fm", *f.WaterLevel))
	}
	if f.Humidity != nil && *f.Humidity > 70 {
		factors = append(factors, fmt.Sprintf("High soil moisture/humidity: %.0f%%", *f.Humidity))
	}
	if f.Rainfall24hMax != nil && *f.Rainfall24hMax > 5 {
		factors = append(factors, fmt.Sprintf("Heavy rainfall intensity: %.1fmm", *f.Rainfall24hMax))
	}
	if len(factors) < 2 {
		if probability < 30 {
			factors = append(factors, "No significant contributing factors identified")
		} else {
			factors = append(factors, "Limited sensor data available for analysis")
		}
	}
	return factors
}

// bandForProbability maps a probability onto the 0..4 risk band with its
// impact narrative. This scale is coarser than, and independent of, the
// threshold ladder Tier.
func bandForProbability(probability float64) (types.RiskBand, string) {
	switch {
	case probability >= 75:
		return types.BandCritical, "Severe flooding likely with significant impact to infrastructure and possible evacuation requirements."
	case probability >= 60:
		return types.BandSevere, "Moderate to severe flooding expected with potential property damage and road closures."
	case probability >= 50:
		return types.BandModerate, "Moderate flooding expected in low-lying areas with potential minor property damage."
	case probability >= 30:
		return types.BandMinor, "Minor flooding possible in flood-prone areas, general population unlikely to be affected."
	default:
		return types.BandNone, "No significant flooding expected under current conditions."
	}
}

// Score runs the named backend against the features, falling back to the
// heuristic on any backend error, timeout, or unknown name. The returned
// assessment always carries the Source that actually produced it. Backend
// calls are bounded by the scorer timeout; a slow backend degrades to the
// heuristic rather than stalling the caller.
func (s *Service) Score(ctx context.Context, features types.FeatureSet, backend string) *types.RiskAssessment {
	if backend == "" {
		backend = s.defaultBackend
	}

	b, err := s.registry.Get(backend)
	if err == nil && b.Name() != HeuristicName {
		bctx, cancel := context.WithTimeout(ctx, s.backendTimeout)
		assessment, perr := b.Predict(bctx, features)
		cancel()
		if perr == nil && assessment != nil {
			assessment.Source = b.Name()
			return assessment
		}
		s.logger.WarnContext(ctx, "scoring backend failed, using heuristic",
			"backend", b.Name(),
			"error", perr,
		)
	} else if err != nil && backend != HeuristicName {
		s.logger.WarnContext(ctx, "scoring backend not installed, using heuristic",
			"backend", backend,
		)
	}

	assessment, _ := Heuristic{}.Predict(ctx, features)
	return assessment
}

// stampFloodTime resolves HoursToFlood into an absolute timestamp.
func stampFloodTime(a *types.RiskAssessment, now time.Time) {
	if a.HoursToFlood != nil {
		t := now.Add(time.Duration(*a.HoursToFlood * float64(time.Hour)))
		a.FloodTime = &t
	}
}
