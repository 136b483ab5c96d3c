package risk

import (
	"context"
	"time"

	"floodwatch/internal/types"
)

// Default feature values used when the corresponding sensor signal is absent.
// Elevation and flood-history defaults vary with how narrowly the caller
// scoped the query; temperature falls back to a tropical baseline.
const (
	defaultElevationScoped  = 25.0
	defaultElevationGlobal  = 20.0
	defaultFloodCountArea   = 2
	defaultFloodCountGlobal = 1
	defaultTemperature      = 25.0
)

// CollectFeatures assembles the scorer's FeatureSet from live sensor data:
// rainfall aggregates over 24h/48h/72h/7d windows, the current and day-old
// water level, humidity as a soil-saturation proxy, and temperature. Missing
// signals stay nil except where a documented default applies; overrides, when
// non-nil, replace the collected value field-for-field.
func (s *Service) CollectFeatures(ctx context.Context, scope types.LocationScope, overrides *types.FeatureSet) (types.FeatureSet, error) {
	now := s.aggregator.Now()
	var fs types.FeatureSet

	rain, err := s.aggregator.TrailingSet(ctx, types.ParameterRainfall, scope,
		24*time.Hour, 48*time.Hour, 72*time.Hour, 7*24*time.Hour)
	if err != nil {
		return fs, err
	}
	if st := rain[24*time.Hour]; st.HasData() {
		fs.Rainfall24h = f64(st.Sum)
		fs.Rainfall24hAvg = f64(st.Avg)
		fs.Rainfall24hMax = f64(st.Max)
	}
	if st := rain[48*time.Hour]; st.HasData() {
		fs.Rainfall48h = f64(st.Sum)
	}
	if st := rain[72*time.Hour]; st.HasData() {
		fs.Rainfall72h = f64(st.Sum)
	}
	if st := rain[7*24*time.Hour]; st.HasData() {
		fs.Rainfall7d = f64(st.Sum)
	}

	// Current water level plus its 24h delta, when both ends exist.
	if latest, err := s.readings.Latest(ctx, types.ParameterWaterLevel, scope); err == nil {
		fs.WaterLevel = f64(latest.Value)
		dayAgo := now.Add(-24 * time.Hour)
		if old, err := s.readings.LatestBefore(ctx, types.ParameterWaterLevel, dayAgo.Add(time.Hour), scope); err == nil {
			fs.WaterLevelChange24h = f64(latest.Value - old.Value)
		}
	} else if !types.IsNoData(err) {
		return fs, err
	}

	if latest, err := s.readings.Latest(ctx, types.ParameterHumidity, scope); err == nil {
		fs.Humidity = f64(latest.Value)
		fs.SoilSaturation = f64(latest.Value)
	} else if !types.IsNoData(err) {
		return fs, err
	}

	temperature := defaultTemperature
	if latest, err := s.readings.Latest(ctx, types.ParameterTemperature, scope); err == nil {
		temperature = latest.Value
	} else if !types.IsNoData(err) {
		return fs, err
	}
	fs.Temperature = f64(temperature)

	elevation := defaultElevationGlobal
	if scope.Kind == types.ScopeMunicipality {
		elevation = defaultElevationScoped
	}
	fs.Elevation = f64(elevation)

	floods := defaultFloodCountGlobal
	if scope.Kind == types.ScopeArea {
		floods = defaultFloodCountArea
	}
	fs.HistoricalFloodCount = iptr(floods)

	month := int(now.Month())
	fs.Month = iptr(month)
	fs.DayOfYear = iptr(now.YearDay())

	if overrides != nil {
		applyOverrides(&fs, overrides)
	}
	return fs, nil
}

// applyOverrides copies every non-nil override field onto the collected set.
func applyOverrides(fs, o *types.FeatureSet) {
	if o.Rainfall24h != nil {
		fs.Rainfall24h = o.Rainfall24h
	}
	if o.Rainfall48h != nil {
		fs.Rainfall48h = o.Rainfall48h
	}
	if o.Rainfall72h != nil {
		fs.Rainfall72h = o.Rainfall72h
	}
	if o.Rainfall7d != nil {
		fs.Rainfall7d = o.Rainfall7d
	}
	if o.Rainfall24hAvg != nil {
		fs.Rainfall24hAvg = o.Rainfall24hAvg
	}
	if o.Rainfall24hMax != nil {
		fs.Rainfall24hMax = o.Rainfall24hMax
	}
	if o.WaterLevel != nil {
		fs.WaterLevel = o.WaterLevel
	}
	if o.WaterLevelChange24h != nil {
		fs.WaterLevelChange24h = o.WaterLevelChange24h
	}
	if o.Temperature != nil {
		fs.Temperature = o.Temperature
	}
	if o.Humidity != nil {
		fs.Humidity = o.Humidity
		fs.SoilSaturation = o.Humidity
	}
	if o.SoilSaturation != nil {
		fs.SoilSaturation = o.SoilSaturation
	}
	if o.Elevation != nil {
		fs.Elevation = o.Elevation
	}
	if o.Month != nil {
		fs.Month = o.Month
	}
	if o.DayOfYear != nil {
		fs.DayOfYear = o.DayOfYear
	}
	if o.HistoricalFloodCount != nil {
		fs.HistoricalFloodCount = o.HistoricalFloodCount
	}
}

func f64(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }
