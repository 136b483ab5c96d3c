package risk

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"floodwatch/internal/types"
)

func TestHeuristic_ProbabilityContributions(t *testing.T) {
	tests := []struct {
		name     string
		features types.FeatureSet
		want     float64
	}{
		{"empty feature set", types.FeatureSet{}, 0},
		{"rain 24h just above top cut", types.FeatureSet{Rainfall24h: fp(50.1)}, 30},
		{"rain 24h exactly 50 is the middle band", types.FeatureSet{Rainfall24h: fp(50)}, 20},
		{"rain 24h exactly 25 is the low band", types.FeatureSet{Rainfall24h: fp(25)}, 10},
		{"rain 24h exactly 10 contributes nothing", types.FeatureSet{Rainfall24h: fp(10)}, 0},
		{"rain 72h above 100", types.FeatureSet{Rainfall72h: fp(120)}, 25},
		{"rain 72h above 50", types.FeatureSet{Rainfall72h: fp(60)}, 15},
		{"rain 72h above 25", types.FeatureSet{Rainfall72h: fp(30)}, 5},
		{"water above 1.5", types.FeatureSet{WaterLevel: fp(1.6)}, 30},
		{"water above 1.0", types.FeatureSet{WaterLevel: fp(1.1)}, 20},
		{"water above 0.5", types.FeatureSet{WaterLevel: fp(0.6)}, 10},
		{"humidity above 90", types.FeatureSet{Humidity: fp(95)}, 15},
		{"humidity above 80", types.FeatureSet{Humidity: fp(85)}, 10},
		{"humidity above 70", types.FeatureSet{Humidity: fp(75)}, 5},
		{
			"all maxed is capped at 100",
			types.FeatureSet{
				Rainfall24h: fp(80),
				Rainfall72h: fp(200),
				WaterLevel:  fp(2.0),
				Humidity:    fp(95),
			},
			100,
		},
		{
			"mixed bands accumulate",
			types.FeatureSet{
				Rainfall24h: fp(30), // +20
				Rainfall72h: fp(60), // +15
				WaterLevel:  fp(1.1), // +20
				Humidity:    fp(75), // +5
			},
			60,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Heuristic{}.Predict(context.Background(), tt.features)
			if err != nil {
				t.Fatalf("Predict() error: %v", err)
			}
			if a.Probability != tt.want {
				t.Errorf("Probability = %v, want %v", a.Probability, tt.want)
			}
			if a.Source != HeuristicName {
				t.Errorf("Source = %q, want %q", a.Source, HeuristicName)
			}
		})
	}
}

func TestHeuristic_Bands(t *testing.T) {
	tests := []struct {
		probability float64
		band        types.RiskBand
	}{
		{0, types.BandNone},
		{29, types.BandNone},
		{30, types.BandMinor},
		{50, types.BandModerate},
		{60, types.BandSevere},
		{75, types.BandCritical},
		{100, types.BandCritical},
	}
	for _, tt := range tests {
		band, impact := bandForProbability(tt.probability)
		if band != tt.band {
			t.Errorf("bandForProbability(%v) = %v, want %v", tt.probability, band, tt.band)
		}
		if impact == "" {
			t.Errorf("empty impact narrative at probability %v", tt.probability)
		}
	}
}

func TestHoursToFlood(t *testing.T) {
	t.Run("below probability gate", func(t *testing.T) {
		f := types.FeatureSet{WaterLevel: fp(1.0), Rainfall24hAvg: fp(10)}
		if got := hoursToFlood(f, 59); got != nil {
			t.Errorf("expected nil below the gate, got %v", *got)
		}
	})

	t.Run("missing inputs", func(t *testing.T) {
		if got := hoursToFlood(types.FeatureSet{Rainfall24hAvg: fp(10)}, 80); got != nil {
			t.Error("expected nil without a water level")
		}
		if got := hoursToFlood(types.FeatureSet{WaterLevel: fp(1.0)}, 80); got != nil {
			t.Error("expected nil without the 24h rainfall average")
		}
	})

	t.Run("no rise means no estimate", func(t *testing.T) {
		f := types.FeatureSet{WaterLevel: fp(1.0), Rainfall24hAvg: fp(0)}
		if got := hoursToFlood(f, 80); got != nil {
			t.Errorf("expected nil with zero rise rate, got %v", *got)
		}
	})

	t.Run("basic estimate", func(t *testing.T) {
		// Gap 0.8m, rise (24/24)*0.02 = 0.02 m/h, so 40 hours.
		f := types.FeatureSet{WaterLevel: fp(1.0), Rainfall24hAvg: fp(24)}
		got := hoursToFlood(f, 80)
		if got == nil {
			t.Fatal("expected an estimate")
		}
		if *got != 40 {
			t.Errorf("hours = %v, want 40", *got)
		}
	})

	t.Run("clamped to floor", func(t *testing.T) {
		// Already above flood stage: gap 0, clamps to 1 hour.
		f := types.FeatureSet{WaterLevel: fp(2.5), Rainfall24hAvg: fp(24)}
		got := hoursToFlood(f, 80)
		if got == nil || *got != 1 {
			t.Errorf("hours = %v, want 1", got)
		}
	})

	t.Run("clamped to ceiling", func(t *testing.T) {
		f := types.FeatureSet{WaterLevel: fp(0.0), Rainfall24hAvg: fp(1)}
		got := hoursToFlood(f, 80)
		if got == nil || *got != 48 {
			t.Errorf("hours = %v, want 48", got)
		}
	})
}

func TestContributingFactors(t *testing.T) {
	t.Run("ordered factor list", func(t *testing.T) {
		f := types.FeatureSet{
			Rainfall24h:    fp(15),
			Rainfall72h:    fp(40),
			WaterLevel:     fp(0.9),
			Humidity:       fp(80),
			Rainfall24hMax: fp(6),
		}
		factors := contributingFactors(f, 50)
		want := []string{
			"Rainfall in the past 24 hours: 15.0mm",
			"Sustained rainfall over 72 hours: 40.0mm",
			"Elevated water level: 0.90m",
			"High soil moisture/humidity: 80%",
			"Heavy rainfall intensity: 6.0mm",
		}
		if len(factors) != len(want) {
			t.Fatalf("got %d factors, want %d: %v", len(factors), len(want), factors)
		}
		for i := range want {
			if factors[i] != want[i] {
				t.Errorf("factor %d = %q, want %q", i, factors[i], want[i])
			}
		}
	})

	t.Run("quiet conditions filler", func(t *testing.T) {
		factors := contributingFactors(types.FeatureSet{}, 0)
		if len(factors) != 1 || factors[0] != "No significant contributing factors identified" {
			t.Errorf("unexpected factors: %v", factors)
		}
	})

	t.Run("sparse data filler at elevated probability", func(t *testing.T) {
		f := types.FeatureSet{WaterLevel: fp(1.6)}
		factors := contributingFactors(f, 30)
		if len(factors) != 2 {
			t.Fatalf("got %d factors, want 2: %v", len(factors), factors)
		}
		if factors[1] != "Limited sensor data available for analysis" {
			t.Errorf("filler = %q", factors[1])
		}
	})
}

func newTestService(readings *mockReadingStore, thresholds *mockThresholdStore, alerts *mockAlertStore, areas *mockAreaStore) *Service {
	if readings == nil {
		readings = &mockReadingStore{}
	}
	if thresholds == nil {
		thresholds = newMockThresholdStore(rainfallLadder(), waterLadder())
	}
	if alerts == nil {
		alerts = &mockAlertStore{}
	}
	if areas == nil {
		areas = newMockAreaStore("Centro", "Riverside", "Uptown")
	}
	return NewService(ServiceConfig{
		Readings:   readings,
		Thresholds: thresholds,
		Alerts:     alerts,
		AlertHist:  alerts,
		Areas:      areas,
		Logger:     testLogger(),
	})
}

func TestScore_FallsBackOnBackendError(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	svc.Registry().Register(&mockBackend{name: "broken", err: errors.New("model offline")})

	a := svc.Score(context.Background(), types.FeatureSet{Rainfall24h: fp(60)}, "broken")
	if a.Source != HeuristicName {
		t.Errorf("Source = %q, want heuristic fallback", a.Source)
	}
	if a.Probability != 30 {
		t.Errorf("Probability = %v, want the heuristic's 30", a.Probability)
	}
}

func TestScore_UnknownBackendFallsBack(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	a := svc.Score(context.Background(), types.FeatureSet{}, "no_such_model")
	if a.Source != HeuristicName {
		t.Errorf("Source = %q, want heuristic", a.Source)
	}
}

func TestScore_UsesNamedBackend(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	backend := &mockBackend{
		name: "random_forest",
		assessment: &types.RiskAssessment{
			Probability: 42,
			Band:        types.BandModerate,
			BandName:    types.BandModerate.String(),
		},
	}
	svc.Registry().Register(backend)

	a := svc.Score(context.Background(), types.FeatureSet{}, "random_forest")
	if a.Source != "random_forest" {
		t.Errorf("Source = %q, want random_forest", a.Source)
	}
	if a.Probability != 42 {
		t.Errorf("Probability = %v, want 42", a.Probability)
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1", backend.calls)
	}
}

func TestScore_SlowBackendDegrades(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	svc.backendTimeout = 10 * time.Millisecond
	svc.Registry().Register(&slowBackend{})

	a := svc.Score(context.Background(), types.FeatureSet{}, "slow")
	if a.Source != HeuristicName {
		t.Errorf("Source = %q, want heuristic after timeout", a.Source)
	}
}

// slowBackend blocks until its context expires.
type slowBackend struct{}

func (slowBackend) Name() string { return "slow" }

func (slowBackend) Predict(ctx context.Context, _ types.FeatureSet) (*types.RiskAssessment, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Get(HeuristicName); err != nil {
		t.Fatalf("heuristic should be pre-registered: %v", err)
	}

	_, err := r.Get("missing")
	if err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeBackendUnavailable {
		t.Errorf("unexpected error: %v", err)
	}

	r.Register(&mockBackend{name: "zeta"})
	r.Register(&mockBackend{name: "alpha"})
	names := r.Names()
	if names[0] != HeuristicName {
		t.Errorf("Names()[0] = %q, want the heuristic first", names[0])
	}
	if strings.Join(names[1:], ",") != "alpha,zeta" {
		t.Errorf("Names()[1:] = %v, want sorted", names[1:])
	}
}
