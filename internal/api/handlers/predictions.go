// Package handlers contains the HTTP handler implementations for the
// floodwatch API. Each handler defines its service contract locally, takes
// its dependencies through a constructor, and mounts its routes via
// RegisterRoutes.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/core"
	"floodwatch/internal/observability"
	"floodwatch/internal/risk"
	"floodwatch/internal/types"
)

// PredictionService is the assessment surface the prediction handler consumes.
type PredictionService interface {
	Assess(ctx context.Context, scope types.LocationScope, backend string, overrides *types.FeatureSet) (*risk.Prediction, error)
	CompareBackends(ctx context.Context, scope types.LocationScope, backends []string) ([]types.BackendResult, error)
}

// PredictionHandler maps the /predict endpoints onto the risk service.
type PredictionHandler struct {
	service PredictionService
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPredictionHandler creates a PredictionHandler. metrics may be nil.
func NewPredictionHandler(svc PredictionService, metrics *observability.Metrics, logger *slog.Logger) *PredictionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionHandler{service: svc, metrics: metrics, logger: logger}
}

// RegisterRoutes mounts the prediction endpoints.
func (h *PredictionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/predict", h.HandlePredict)
	r.Post("/predict", h.HandlePredictWithOverrides)
	r.Get("/predict/compare", h.HandleCompare)
	r.Post("/predict/compare", h.HandleCompareWithBody)
}

// HandlePredict handles GET /api/predict. The backend, municipality_id, and
// area_id query parameters are all optional; defaults are the configured
// backend and the global scope.
func (h *PredictionHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	prediction, err := h.service.Assess(r.Context(), scopeFromQuery(r), r.URL.Query().Get("backend"), nil)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.metrics.RecordAssessment(r.Context(), prediction.Assessment.Source, prediction.Assessment.BandName, time.Since(start))
	core.OK(w, r, prediction)
}

// predictRequest is the POST /api/predict body. Features given here override
// the sensor-derived values field by field.
type predictRequest struct {
	Backend        string            `json:"backend,omitempty"`
	MunicipalityID string            `json:"municipality_id,omitempty"`
	AreaID         string            `json:"area_id,omitempty"`
	Features       *types.FeatureSet `json:"features,omitempty"`
}

func (req predictRequest) scope() types.LocationScope {
	if req.AreaID != "" {
		return types.AreaScope(req.AreaID)
	}
	if req.MunicipalityID != "" {
		return types.MunicipalityScope(req.MunicipalityID)
	}
	return types.GlobalScope()
}

// HandlePredictWithOverrides handles POST /api/predict.
func (h *PredictionHandler) HandlePredictWithOverrides(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	start := time.Now()
	prediction, err := h.service.Assess(r.Context(), req.scope(), req.Backend, req.Features)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.metrics.RecordAssessment(r.Context(), prediction.Assessment.Source, prediction.Assessment.BandName, time.Since(start))
	core.OK(w, r, prediction)
}

// HandleCompare handles GET /api/predict/compare. The backends query
// parameter is a comma-separated list; empty means every installed backend.
func (h *PredictionHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var backends []string
	if raw := r.URL.Query().Get("backends"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				backends = append(backends, name)
			}
		}
	}

	results, err := h.service.CompareBackends(r.Context(), scopeFromQuery(r), backends)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, results)
}

type compareRequest struct {
	Backends       []string `json:"backends,omitempty"`
	MunicipalityID string   `json:"municipality_id,omitempty"`
	AreaID         string   `json:"area_id,omitempty"`
}

// HandleCompareWithBody handles POST /api/predict/compare.
func (h *PredictionHandler) HandleCompareWithBody(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	scope := types.GlobalScope()
	if req.AreaID != "" {
		scope = types.AreaScope(req.AreaID)
	} else if req.MunicipalityID != "" {
		scope = types.MunicipalityScope(req.MunicipalityID)
	}

	results, err := h.service.CompareBackends(r.Context(), scope, req.Backends)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, results)
}
