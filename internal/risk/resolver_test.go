package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"floodwatch/internal/types"
)

var resolveNow = time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)

func assessmentAt(probability float64) *types.RiskAssessment {
	a := &types.RiskAssessment{Probability: probability}
	a.Band, a.Impact = bandForProbability(probability)
	a.BandName = a.Band.String()
	return a
}

func TestResolve_BelowFloor(t *testing.T) {
	r := NewResolver(newMockAreaStore("Centro"), &mockAlertStore{}, &mockReadingStore{}, nil)

	areas, err := r.Resolve(context.Background(), assessmentAt(29), types.GlobalScope(), resolveNow)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if areas != nil {
		t.Errorf("expected nil below the floor, got %d areas", len(areas))
	}

	areas, err = r.Resolve(context.Background(), nil, types.GlobalScope(), resolveNow)
	if err != nil || areas != nil {
		t.Errorf("nil assessment should resolve to nothing, got %v, %v", areas, err)
	}
}

func TestResolve_AreaScopeShortCircuits(t *testing.T) {
	store := newMockAreaStore("Centro", "Riverside")
	predictor := &mockPredictor{err: errors.New("should not be called")}
	r := NewResolver(store, &mockAlertStore{}, &mockReadingStore{}, predictor)

	areaID := store.areas[0].ID
	areas, err := r.Resolve(context.Background(), assessmentAt(80), types.AreaScope(areaID), resolveNow)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(areas) != 1 || areas[0].ID != areaID {
		t.Fatalf("expected the single scoped area, got %v", areas)
	}
	if predictor.calls != 0 {
		t.Error("predictor must not run for a single-area scope")
	}
	if areas[0].RiskLevel != types.AreaRiskHigh || areas[0].EvacuationCenters != 3 {
		t.Errorf("tagging = %v/%d, want High/3", areas[0].RiskLevel, areas[0].EvacuationCenters)
	}
}

func TestResolve_PredictorWins(t *testing.T) {
	predicted := []types.AffectedArea{{
		Area:              types.Area{ID: "area_x", Name: "Delta"},
		RiskLevel:         types.AreaRiskModerate,
		EvacuationCenters: 2,
	}}
	r := NewResolver(newMockAreaStore("Centro"), &mockAlertStore{}, &mockReadingStore{}, &mockPredictor{areas: predicted})

	areas, err := r.Resolve(context.Background(), assessmentAt(55), types.GlobalScope(), resolveNow)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(areas) != 1 || areas[0].ID != "area_x" {
		t.Errorf("expected the predictor's areas, got %v", areas)
	}
}

func TestResolve_PredictorFailureAdvances(t *testing.T) {
	store := newMockAreaStore("Centro", "Riverside", "Uptown", "Valley")
	alerts := &mockAlertStore{recentAreaIDs: []string{store.areas[1].ID}}
	r := NewResolver(store, alerts, &mockReadingStore{}, &mockPredictor{err: errors.New("offline")})

	areas, err := r.Resolve(context.Background(), assessmentAt(55), types.GlobalScope(), resolveNow)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(areas) != 1 || areas[0].ID != store.areas[1].ID {
		t.Errorf("expected the recent-alert area, got %v", areas)
	}
	if areas[0].RiskLevel != types.AreaRiskModerate || areas[0].EvacuationCenters != 2 {
		t.Errorf("tagging = %v/%d, want Moderate/2", areas[0].RiskLevel, areas[0].EvacuationCenters)
	}
}

func TestResolve_HighWaterSensorAreas(t *testing.T) {
	store := newMockAreaStore("Centro", "Riverside", "Uptown")
	readings := &mockReadingStore{
		readings: []types.Reading{{
			Parameter: types.ParameterWaterLevel,
			Value:     0.9,
			Timestamp: resolveNow.Add(-time.Hour),
		}},
		highWaterAreas: []string{store.areas[2].ID},
	}
	r := NewResolver(store, &mockAlertStore{}, readings, nil)

	areas, err := r.Resolve(context.Background(), assessmentAt(45), types.GlobalScope(), resolveNow)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(areas) != 1 || areas[0].ID != store.areas[2].ID {
		t.Errorf("expected the high-water sensor area, got %v", areas)
	}
}

func TestResolve_HighWaterAlphabeticalFallback(t *testing.T) {
	// High water but no sensor-area mapping: first five areas by name.
	store := newMockAreaStore("Fern", "Ash", "Dale", "Cove", "Brook", "Glen", "Elm")
	readings := &mockReadingStore{
		readings: []types.Reading{{
			Parameter: types.ParameterWaterLevel,
			Value:     0.7,
			Timestamp: resolveNow.Add(-time.Hour),
		}},
	}
	r := NewResolver(store, &mockAlertStore{}, readings, nil)

	areas, err := r.Resolve(context.Background(), assessmentAt(45), types.GlobalScope(), resolveNow)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(areas) != 5 {
		t.Fatalf("got %d areas, want 5", len(areas))
	}
	wantNames := []string{"Ash", "Brook", "Cove", "Dale", "Elm"}
	for i, want := range wantNames {
		if areas[i].Name != want {
			t.Errorf("area %d = %q, want %q", i, areas[i].Name, want)
		}
	}
}

func TestResolve_QuietFallbackIsThreeAlphabetical(t *testing.T) {
	store := newMockAreaStore("Fern", "Ash", "Dale", "Cove")
	r := NewResolver(store, &mockAlertStore{}, &mockReadingStore{}, nil)

	areas, err := r.Resolve(context.Background(), assessmentAt(35), types.GlobalScope(), resolveNow)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(areas) != 3 {
		t.Fatalf("got %d areas, want 3", len(areas))
	}
	wantNames := []string{"Ash", "Cove", "Dale"}
	for i, want := range wantNames {
		if areas[i].Name != want {
			t.Errorf("area %d = %q, want %q", i, areas[i].Name, want)
		}
	}
	// Probability 35 is below the Moderate tag cut.
	if areas[0].RiskLevel != types.AreaRiskLow || areas[0].EvacuationCenters != 1 {
		t.Errorf("tagging = %v/%d, want Low/1", areas[0].RiskLevel, areas[0].EvacuationCenters)
	}
}
