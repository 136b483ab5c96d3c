package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/core"
	"floodwatch/internal/types"
)

// HistoryService runs year-over-year comparisons for decision support.
type HistoryService interface {
	CompareHistory(ctx context.Context, parameter types.Parameter, days int, scope types.LocationScope) (*types.HistoryComparison, error)
}

// HistoryHandler serves the historical suggestion endpoint.
type HistoryHandler struct {
	service HistoryService
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(svc HistoryService, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{service: svc, logger: logger}
}

// RegisterRoutes mounts the history endpoints.
func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/history/{parameter}", h.HandleCompare)
}

// HandleCompare handles GET /api/history/{parameter}?days=7. Compares the
// trailing window against the same window one year prior and recommends an
// alert tier with reasons.
func (h *HistoryHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	parameter, err := parameterFromString(chi.URLParam(r, "parameter"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	comparison, err := h.service.CompareHistory(r.Context(), parameter, intQuery(r, "days", 0), scopeFromQuery(r))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, comparison)
}
