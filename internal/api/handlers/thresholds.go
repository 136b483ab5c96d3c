package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/core"
	"floodwatch/internal/types"
)

// StatusService is the dashboard surface the threshold handler consumes.
type StatusService interface {
	Status(ctx context.Context, scope types.LocationScope) ([]types.ParameterStatus, error)
	ClassifyCurrent(ctx context.Context, parameter types.Parameter, scope types.LocationScope) (*types.ParameterStatus, error)
}

// ThresholdStore persists per-parameter ladders.
type ThresholdStore interface {
	List(ctx context.Context) ([]types.ThresholdSet, error)
	Upsert(ctx context.Context, ts *types.ThresholdSet) error
}

// ThresholdHandler serves the threshold dashboard and ladder configuration.
type ThresholdHandler struct {
	service   StatusService
	store     ThresholdStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewThresholdHandler creates a ThresholdHandler.
func NewThresholdHandler(svc StatusService, store ThresholdStore, val *core.Validator, logger *slog.Logger) *ThresholdHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThresholdHandler{service: svc, store: store, validator: val, logger: logger}
}

// RegisterRoutes mounts the threshold endpoints.
func (h *ThresholdHandler) RegisterRoutes(r chi.Router) {
	r.Get("/thresholds", h.HandleDashboard)
	r.Get("/thresholds/{parameter}", h.HandleParameter)
	r.Put("/thresholds/{parameter}", h.HandleUpsert)
}

// HandleDashboard handles GET /api/thresholds: every configured parameter
// with latest value, 24h stats, severity, and progress to the next tier.
func (h *ThresholdHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.Status(r.Context(), scopeFromQuery(r))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, statuses)
}

// HandleParameter handles GET /api/thresholds/{parameter}. An unconfigured
// parameter is a 404 carrying the list of configured parameters.
func (h *ThresholdHandler) HandleParameter(w http.ResponseWriter, r *http.Request) {
	parameter, err := parameterFromString(chi.URLParam(r, "parameter"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	status, err := h.service.ClassifyCurrent(r.Context(), parameter, scopeFromQuery(r))
	if err != nil {
		if types.IsNotFound(err) {
			core.Error(w, r, types.NewAppErrorWithDetails(
				types.ErrCodeNotFoundThreshold,
				"no thresholds configured for "+string(parameter),
				err,
				map[string]any{"available_parameters": h.configuredParameters(r.Context())},
			))
			return
		}
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, status)
}

type upsertThresholdRequest struct {
	Unit         string  `json:"unit" validate:"required"`
	Advisory     float64 `json:"advisory"`
	Watch        float64 `json:"watch"`
	Warning      float64 `json:"warning"`
	Emergency    float64 `json:"emergency"`
	Catastrophic float64 `json:"catastrophic"`
}

// HandleUpsert handles PUT /api/thresholds/{parameter}. Non-monotonic
// ladders are rejected before they reach the store.
func (h *ThresholdHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	parameter, err := parameterFromString(chi.URLParam(r, "parameter"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req upsertThresholdRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	ts := types.ThresholdSet{
		Parameter:    parameter,
		Unit:         req.Unit,
		Advisory:     req.Advisory,
		Watch:        req.Watch,
		Warning:      req.Warning,
		Emergency:    req.Emergency,
		Catastrophic: req.Catastrophic,
	}
	if err := ts.Validate(); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.store.Upsert(r.Context(), &ts); err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, ts)
}

func (h *ThresholdHandler) configuredParameters(ctx context.Context) []string {
	sets, err := h.store.List(ctx)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(sets))
	for _, ts := range sets {
		names = append(names, string(ts.Parameter))
	}
	return names
}
