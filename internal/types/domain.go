package types

import "time"

// Sensor is a physical measurement station. Sensors are reference data owned
// by the ingestion boundary; the core only reads them to resolve locations.
type Sensor struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Type           Parameter `json:"type" db:"sensor_type"`
	Unit           string    `json:"unit" db:"unit"`
	Lat            float64   `json:"lat" db:"latitude"`
	Lon            float64   `json:"lon" db:"longitude"`
	MunicipalityID string    `json:"municipality_id,omitempty" db:"municipality_id"`
	AreaID         string    `json:"area_id,omitempty" db:"area_id"`
	Active         bool      `json:"active" db:"active"`
}

// Reading is a single time-stamped sensor measurement. Readings are immutable
// once recorded; the store is append-only from the core's perspective.
type Reading struct {
	ID        int64     `json:"id" db:"id"`
	SensorID  string    `json:"sensor_id" db:"sensor_id"`
	Parameter Parameter `json:"parameter" db:"parameter"`
	Value     float64   `json:"value" db:"value"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// ThresholdSet is the per-parameter ladder of five increasing cut-points.
// Mutated only by configuration; read by the classifier and scorer.
type ThresholdSet struct {
	Parameter    Parameter `json:"parameter" db:"parameter"`
	Unit         string    `json:"unit" db:"unit"`
	Advisory     float64   `json:"advisory" db:"advisory_threshold"`
	Watch        float64   `json:"watch" db:"watch_threshold"`
	Warning      float64   `json:"warning" db:"warning_threshold"`
	Emergency    float64   `json:"emergency" db:"emergency_threshold"`
	Catastrophic float64   `json:"catastrophic" db:"catastrophic_threshold"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Cutoffs returns the ladder in ascending tier order (Advisory first).
func (t ThresholdSet) Cutoffs() [5]float64 {
	return [5]float64{t.Advisory, t.Watch, t.Warning, t.Emergency, t.Catastrophic}
}

// Validate rejects non-monotonic ladders. Cut-points must be non-decreasing
// from Advisory through Catastrophic; equal adjacent cut-points are allowed
// (the classifier's progress math floors the denominator).
func (t ThresholdSet) Validate() error {
	cut := t.Cutoffs()
	for i := 1; i < len(cut); i++ {
		if cut[i] < cut[i-1] {
			return NewAppErrorWithDetails(
				ErrCodeValidationThresholdOrder,
				"threshold cut-points must be non-decreasing",
				nil,
				map[string]any{"parameter": string(t.Parameter)},
			)
		}
	}
	return nil
}

// WindowStats holds derived statistics for a (parameter, window, scope)
// query. It is ephemeral and never persisted.
//
// Count == 0 is the explicit "no data" state: Sum, Avg, and Max are
// meaningless and callers must apply their own defaults rather than reading
// zeroes out of an empty window.
type WindowStats struct {
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// HasData reports whether the window matched at least one reading.
func (s WindowStats) HasData() bool {
	return s.Count > 0
}

// SumOr returns the window sum, or def when the window is empty.
func (s WindowStats) SumOr(def float64) float64 {
	if !s.HasData() {
		return def
	}
	return s.Sum
}

// FeatureSet is the fixed-shape numeric input to the risk scorer. Nil fields
// are explicitly "unset": the heuristic skips the corresponding factor and
// backends receive them as missing values.
type FeatureSet struct {
	Rainfall24h          *float64 `json:"rainfall_24h,omitempty"`
	Rainfall48h          *float64 `json:"rainfall_48h,omitempty"`
	Rainfall72h          *float64 `json:"rainfall_72h,omitempty"`
	Rainfall7d           *float64 `json:"rainfall_7d,omitempty"`
	Rainfall24hAvg       *float64 `json:"rainfall_24h_avg,omitempty"`
	Rainfall24hMax       *float64 `json:"rainfall_24h_max,omitempty"`
	WaterLevel           *float64 `json:"water_level,omitempty"`
	WaterLevelChange24h  *float64 `json:"water_level_change_24h,omitempty"`
	Temperature          *float64 `json:"temperature,omitempty"`
	Humidity             *float64 `json:"humidity,omitempty"`
	SoilSaturation       *float64 `json:"soil_saturation,omitempty"`
	Elevation            *float64 `json:"elevation,omitempty"`
	Month                *int     `json:"month,omitempty"`
	DayOfYear            *int     `json:"day_of_year,omitempty"`
	HistoricalFloodCount *int     `json:"historical_floods_count,omitempty"`
}

// RiskAssessment is the scorer's output. Produced fresh per invocation and
// never mutated after return.
type RiskAssessment struct {
	Probability         float64    `json:"probability"`
	Band                RiskBand   `json:"severity_band"`
	BandName            string     `json:"severity_band_name"`
	HoursToFlood        *float64   `json:"hours_to_flood,omitempty"`
	FloodTime           *time.Time `json:"flood_time,omitempty"`
	Impact              string     `json:"impact"`
	ContributingFactors []string   `json:"contributing_factors"`
	Source              string     `json:"source"` // backend name or "heuristic"
}

// BackendResult is one entry of an algorithm-comparison run. Exactly one of
// Assessment or Error is populated; a failing backend never aborts the batch.
type BackendResult struct {
	Backend    string          `json:"backend"`
	Assessment *RiskAssessment `json:"assessment,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Alert is a standing hazard notice. At most one active alert exists per
// hazard type; the lifecycle manager escalates it in place and never
// downgrades or closes it (closing is an external operation).
type Alert struct {
	ID              string    `json:"id" db:"id"`
	HazardType      Parameter `json:"hazard_type" db:"hazard_type"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	Severity        Tier      `json:"severity" db:"severity"`
	Active          bool      `json:"active" db:"active"`
	AffectedAreaIDs []string  `json:"affected_area_ids" db:"-"`
	IssuedAt        time.Time `json:"issued_at" db:"issued_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Municipality is a static administrative region containing areas.
type Municipality struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Province string `json:"province" db:"province"`
	Active   bool   `json:"active" db:"is_active"`
}

// Area is the smallest administrative unit tracked. Static reference data,
// owned externally; the core reads it to annotate assessments.
type Area struct {
	ID               string  `json:"id" db:"id"`
	Name             string  `json:"name" db:"name"`
	MunicipalityID   string  `json:"municipality_id" db:"municipality_id"`
	MunicipalityName string  `json:"municipality_name,omitempty" db:"-"`
	Population       int     `json:"population" db:"population"`
	Lat              float64 `json:"lat" db:"latitude"`
	Lon              float64 `json:"lon" db:"longitude"`
	ContactPerson    string  `json:"contact_person,omitempty" db:"contact_person"`
	ContactNumber    string  `json:"contact_number,omitempty" db:"contact_number"`
}

// AffectedArea is an area annotated with assessment-scoped risk metadata.
type AffectedArea struct {
	Area
	RiskLevel         AreaRiskLevel `json:"risk_level"`
	EvacuationCenters int           `json:"evacuation_centers"`
}

// HistoryMetrics carries the raw numbers behind a historical comparison.
type HistoryMetrics struct {
	CurrentAvg    float64 `json:"current_avg"`
	HistoricalAvg float64 `json:"historical_avg"`
	DeviationPct  float64 `json:"deviation_pct"`
	CurrentMax    float64 `json:"current_max"`
	Count         int     `json:"count"`
}

// HistoryComparison is the historical comparator's decision-support output.
// Its Tier is recommended from year-over-year deviation and is independent of
// the risk scorer's probability bands.
type HistoryComparison struct {
	Parameter       Parameter      `json:"parameter"`
	Days            int            `json:"days"`
	Subject         string         `json:"subject"`
	RecommendedTier Tier           `json:"level_numeric"`
	Level           string         `json:"level"`
	SuggestedAction string         `json:"suggested_action"`
	Reasons         []string       `json:"reasons"`
	Metrics         HistoryMetrics `json:"metrics"`
	WindowStart     time.Time      `json:"window_start"`
	WindowEnd       time.Time      `json:"window_end"`
	Synthesized     bool           `json:"baseline_synthesized"`
}

// TierProgress describes the interpolated progress from the current tier
// toward the next threshold cut-point. Known is false when no reading exists
// for the parameter; the progress is then explicitly unknown, not 0%.
type TierProgress struct {
	Known        bool     `json:"known"`
	NextTierName string   `json:"next_tier_name,omitempty"`
	NextTier     *float64 `json:"next_tier_value,omitempty"`
	Delta        *float64 `json:"delta,omitempty"`
	ProgressPct  *float64 `json:"progress_pct,omitempty"`
}

// ParameterStatus is the dashboard view of one parameter: configured ladder,
// latest observation, 24h statistics, severity, and progress to the next tier.
type ParameterStatus struct {
	Parameter       Parameter    `json:"parameter"`
	Unit            string       `json:"unit"`
	Thresholds      ThresholdSet `json:"thresholds"`
	LatestValue     *float64     `json:"latest_value"`
	LatestTimestamp *time.Time   `json:"latest_timestamp"`
	Stats24h        WindowStats  `json:"stats_24h"`
	Severity        Tier         `json:"severity"`
	SeverityName    string       `json:"severity_name"`
	Progress        TierProgress `json:"next_level"`
}

// AlertEvent is the message published to the notification queue when the
// lifecycle manager creates or escalates an alert.
type AlertEvent struct {
	EventID      string    `json:"event_id"`
	Kind         string    `json:"kind"` // "created" or "escalated"
	AlertID      string    `json:"alert_id"`
	HazardType   Parameter `json:"hazard_type"`
	Severity     Tier      `json:"severity"`
	PrevSeverity Tier      `json:"previous_severity,omitempty"`
	Value        float64   `json:"value"`
	OccurredAt   time.Time `json:"occurred_at"`
}
