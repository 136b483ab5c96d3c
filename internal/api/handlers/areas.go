package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/core"
	"floodwatch/internal/types"
)

// AreaStore is the reference-data surface the area handler consumes.
type AreaStore interface {
	ListMunicipalities(ctx context.Context) ([]types.Municipality, error)
	GetMunicipality(ctx context.Context, id string) (*types.Municipality, error)
	ListAreas(ctx context.Context, scope types.LocationScope) ([]types.Area, error)
	GetArea(ctx context.Context, id string) (*types.Area, error)
}

// AreaHandler serves municipality and area reference listings.
type AreaHandler struct {
	store  AreaStore
	logger *slog.Logger
}

// NewAreaHandler creates an AreaHandler.
func NewAreaHandler(store AreaStore, logger *slog.Logger) *AreaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AreaHandler{store: store, logger: logger}
}

// RegisterRoutes mounts the reference-data endpoints.
func (h *AreaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/municipalities", h.HandleListMunicipalities)
	r.Get("/municipalities/{id}", h.HandleGetMunicipality)
	r.Get("/areas", h.HandleListAreas)
	r.Get("/areas/{id}", h.HandleGetArea)
}

// HandleListMunicipalities handles GET /api/municipalities.
func (h *AreaHandler) HandleListMunicipalities(w http.ResponseWriter, r *http.Request) {
	municipalities, err := h.store.ListMunicipalities(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, municipalities)
}

// HandleGetMunicipality handles GET /api/municipalities/{id}.
func (h *AreaHandler) HandleGetMunicipality(w http.ResponseWriter, r *http.Request) {
	municipality, err := h.store.GetMunicipality(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, municipality)
}

// HandleListAreas handles GET /api/areas, optionally narrowed by
// municipality_id. Areas are returned in name order.
func (h *AreaHandler) HandleListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.store.ListAreas(r.Context(), scopeFromQuery(r))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, areas)
}

// HandleGetArea handles GET /api/areas/{id}.
func (h *AreaHandler) HandleGetArea(w http.ResponseWriter, r *http.Request) {
	area, err := h.store.GetArea(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, area)
}
