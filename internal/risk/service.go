package risk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"floodwatch/internal/types"
)

// Prediction is the full assess output: the scorer's assessment plus the
// resolved affected areas and the raw inputs echoed for display.
type Prediction struct {
	Assessment    types.RiskAssessment `json:"assessment"`
	AffectedAreas []types.AffectedArea `json:"affected_areas"`
	Rainfall24h   float64              `json:"rainfall_24h"`
	WaterLevel    float64              `json:"water_level"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// ServiceConfig holds the dependencies for creating a Service.
type ServiceConfig struct {
	Readings   ReadingStore
	Thresholds ThresholdStore
	Alerts     AlertStore
	AlertHist  AlertHistory
	Areas      AreaStore
	Registry   *Registry
	Predictor  AreaPredictor  // optional
	Publisher  EventPublisher // optional
	Clock      clockwork.Clock
	Logger     *slog.Logger

	// DefaultBackend names the backend used when the caller does not pick
	// one. Unknown names degrade to the heuristic at scoring time.
	DefaultBackend string
	// BackendTimeout bounds a single remote backend call.
	BackendTimeout time.Duration
}

// Service is the engine façade: it owns the aggregator, classifier wiring,
// scorer registry, resolver, lifecycle manager, and comparator, and exposes
// the assessment operations callers consume.
type Service struct {
	readings   ReadingStore
	thresholds ThresholdStore
	registry   *Registry
	aggregator *Aggregator
	resolver   *Resolver
	lifecycle  *LifecycleManager
	comparator *Comparator
	logger     *slog.Logger

	defaultBackend string
	backendTimeout time.Duration
}

// NewService wires the engine from its dependencies.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	defaultBackend := cfg.DefaultBackend
	if defaultBackend == "" {
		defaultBackend = HeuristicName
	}
	timeout := cfg.BackendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	aggregator := NewAggregator(cfg.Readings, clock)
	return &Service{
		readings:       cfg.Readings,
		thresholds:     cfg.Thresholds,
		registry:       registry,
		aggregator:     aggregator,
		resolver:       NewResolver(cfg.Areas, cfg.AlertHist, cfg.Readings, cfg.Predictor),
		lifecycle:      NewLifecycleManager(cfg.Alerts, cfg.Thresholds, cfg.Areas, cfg.Publisher, logger),
		comparator:     NewComparator(aggregator, cfg.Thresholds),
		logger:         logger,
		defaultBackend: defaultBackend,
		backendTimeout: timeout,
	}
}

// Registry exposes the backend registry so callers can install backends.
func (s *Service) Registry() *Registry { return s.registry }

// Assess runs a full assessment for the scope: collect features (with
// optional caller overrides), score them through the chosen backend (falling
// back to the heuristic on any failure), and resolve affected areas. Backend
// failures never surface; store failures do.
func (s *Service) Assess(ctx context.Context, scope types.LocationScope, backend string, overrides *types.FeatureSet) (*Prediction, error) {
	if err := scope.Validate(); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidScope, err.Error(), err)
	}

	features, err := s.CollectFeatures(ctx, scope, overrides)
	if err != nil {
		return nil, err
	}

	now := s.aggregator.Now()
	assessment := s.Score(ctx, features, backend)
	stampFloodTime(assessment, now)

	areas, err := s.resolver.Resolve(ctx, assessment, scope, now)
	if err != nil {
		return nil, err
	}

	prediction := &Prediction{
		Assessment:    *assessment,
		AffectedAreas: areas,
		GeneratedAt:   now,
	}
	if features.Rainfall24h != nil {
		prediction.Rainfall24h = *features.Rainfall24h
	}
	if features.WaterLevel != nil {
		prediction.WaterLevel = *features.WaterLevel
	}

	s.logger.InfoContext(ctx, "assessment complete",
		"scope", scope.String(),
		"backend", assessment.Source,
		"probability", assessment.Probability,
		"band", assessment.BandName,
		"affected_areas", len(areas),
	)
	return prediction, nil
}

// RecordReading runs the alert lifecycle for a newly ingested reading.
func (s *Service) RecordReading(ctx context.Context, parameter types.Parameter, value float64) (*types.Alert, error) {
	return s.lifecycle.RecordReading(ctx, parameter, value)
}

// CompareHistory runs the year-over-year historical comparison.
func (s *Service) CompareHistory(ctx context.Context, parameter types.Parameter, days int, scope types.LocationScope) (*types.HistoryComparison, error) {
	if err := scope.Validate(); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidScope, err.Error(), err)
	}
	return s.comparator.Compare(ctx, parameter, days, scope)
}

// CompareBackends scores the same FeatureSet through each named backend and
// collects per-backend results. A failing backend contributes an error record
// instead of aborting the batch; partial success is the expected outcome.
// Backends run concurrently with isolated failure domains. An empty backend
// list means "the heuristic plus everything installed".
func (s *Service) CompareBackends(ctx context.Context, scope types.LocationScope, backends []string) ([]types.BackendResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidScope, err.Error(), err)
	}
	if len(backends) == 0 {
		backends = s.registry.Names()
	}

	features, err := s.CollectFeatures(ctx, scope, nil)
	if err != nil {
		return nil, err
	}
	now := s.aggregator.Now()

	results := make([]types.BackendResult, len(backends))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range backends {
		g.Go(func() error {
			result := types.BackendResult{Backend: name}

			b, err := s.registry.Get(name)
			if err != nil {
				result.Error = err.Error()
			} else {
				bctx, cancel := context.WithTimeout(gctx, s.backendTimeout)
				assessment, perr := b.Predict(bctx, features)
				cancel()
				if perr != nil {
					result.Error = perr.Error()
				} else {
					assessment.Source = name
					stampFloodTime(assessment, now)
					result.Assessment = assessment
				}
			}

			mu.Lock()
			results[i] = result
			mu.Unlock()
			return nil
		})
	}
	// Goroutines only record results, never return errors.
	_ = g.Wait()

	return results, nil
}
