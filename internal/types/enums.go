package types

// Parameter identifies a monitored physical quantity (hazard type).
// Each parameter maps to a class of sensors and to at most one ThresholdSet.
type Parameter string

const (
	ParameterRainfall    Parameter = "rainfall"
	ParameterWaterLevel  Parameter = "water_level"
	ParameterHumidity    Parameter = "humidity"
	ParameterTemperature Parameter = "temperature"
)

// KnownParameters lists every parameter the platform monitors, in the order
// they are rendered on dashboards.
var KnownParameters = []Parameter{
	ParameterRainfall,
	ParameterWaterLevel,
	ParameterHumidity,
	ParameterTemperature,
}

// Valid reports whether p is one of the known parameters.
func (p Parameter) Valid() bool {
	switch p {
	case ParameterRainfall, ParameterWaterLevel, ParameterHumidity, ParameterTemperature:
		return true
	}
	return false
}

// Tier is the ordinal severity classification on the threshold ladder.
// Tier 0 means no threshold has been crossed.
//
// Tier and RiskBand are deliberately distinct types: Tier is driven by
// configured per-parameter thresholds, RiskBand by the scorer's probability
// bands. They use different scales and must never be converted implicitly.
type Tier int

const (
	TierNormal       Tier = 0
	TierAdvisory     Tier = 1
	TierWatch        Tier = 2
	TierWarning      Tier = 3
	TierEmergency    Tier = 4
	TierCatastrophic Tier = 5
)

// String returns the human-readable name for the tier.
func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "Normal"
	case TierAdvisory:
		return "Advisory"
	case TierWatch:
		return "Watch"
	case TierWarning:
		return "Warning"
	case TierEmergency:
		return "Emergency"
	case TierCatastrophic:
		return "Catastrophic"
	}
	return "Unknown"
}

// SuggestedAction returns the operational guidance associated with a tier.
// Used by the historical comparator's decision-support output.
func (t Tier) SuggestedAction() string {
	switch t {
	case TierAdvisory:
		return "Issue Advisory and inform monitoring teams."
	case TierWatch:
		return "Issue Watch and prepare response resources."
	case TierWarning:
		return "Issue Warning and activate response plans."
	case TierEmergency:
		return "Issue Emergency alert and consider evacuations."
	case TierCatastrophic:
		return "Issue Catastrophic alert. Immediate evacuation recommended."
	}
	return "No action required. Continue monitoring."
}

// RiskBand is the coarse severity scale derived from flood probability by the
// risk scorer. It runs 0..4 and is NOT the same ladder as Tier; see Tier docs.
type RiskBand int

const (
	BandNone     RiskBand = 0
	BandMinor    RiskBand = 1
	BandModerate RiskBand = 2
	BandSevere   RiskBand = 3
	BandCritical RiskBand = 4
)

// String returns the display name of the risk band.
func (b RiskBand) String() string {
	switch b {
	case BandNone:
		return "None"
	case BandMinor:
		return "Minor"
	case BandModerate:
		return "Moderate"
	case BandSevere:
		return "Severe"
	case BandCritical:
		return "Critical"
	}
	return "Unknown"
}

// AreaRiskLevel is the per-area risk tag attached by the affected-area resolver.
type AreaRiskLevel string

const (
	AreaRiskLow      AreaRiskLevel = "Low"
	AreaRiskModerate AreaRiskLevel = "Moderate"
	AreaRiskHigh     AreaRiskLevel = "High"
)

// EvacuationCenters returns the number of evacuation centers opened for a
// given per-area risk level.
func (l AreaRiskLevel) EvacuationCenters() int {
	switch l {
	case AreaRiskHigh:
		return 3
	case AreaRiskModerate:
		return 2
	}
	return 1
}
