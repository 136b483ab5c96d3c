package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/core"
	"floodwatch/internal/db"
	"floodwatch/internal/types"
)

// AlertStore is the query surface the alert handler consumes.
type AlertStore interface {
	List(ctx context.Context, p db.AlertListParams) ([]types.Alert, error)
}

// AlertHandler serves alert listing and filtering.
type AlertHandler struct {
	store  AlertStore
	logger *slog.Logger
}

// NewAlertHandler creates an AlertHandler.
func NewAlertHandler(store AlertStore, logger *slog.Logger) *AlertHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertHandler{store: store, logger: logger}
}

// RegisterRoutes mounts the alert endpoints.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Get("/alerts", h.HandleList)
}

// HandleList handles GET /api/alerts with active, min_severity, scope, and
// limit filters. Alerts come back newest-first with their affected-area IDs.
func (h *AlertHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := db.AlertListParams{
		Scope: scopeFromQuery(r),
		Limit: intQuery(r, "limit", 0),
	}

	switch q.Get("active") {
	case "true":
		active := true
		params.Active = &active
	case "false":
		active := false
		params.Active = &active
	case "":
	default:
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidValue,
			"active must be true or false",
			nil,
		))
		return
	}

	if minSev := intQuery(r, "min_severity", 0); minSev > 0 {
		if minSev > int(types.TierCatastrophic) {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidValue,
				"min_severity must be between 0 and 5",
				nil,
			))
			return
		}
		params.MinSeverity = types.Tier(minSev)
	}

	alerts, err := h.store.List(r.Context(), params)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, alerts)
}
