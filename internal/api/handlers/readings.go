package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"floodwatch/internal/core"
	"floodwatch/internal/db"
	"floodwatch/internal/observability"
	"floodwatch/internal/types"
)

// ReadingStore is the persistence surface the ingestion handler consumes.
type ReadingStore interface {
	GetSensor(ctx context.Context, id string) (*types.Sensor, error)
	Insert(ctx context.Context, reading *types.Reading) error
	List(ctx context.Context, p db.ListParams) ([]types.Reading, error)
}

// AlertRecorder runs the alert lifecycle for a newly stored reading.
type AlertRecorder interface {
	RecordReading(ctx context.Context, parameter types.Parameter, value float64) (*types.Alert, error)
}

// ReadingHandler implements sensor data ingestion and reading queries.
type ReadingHandler struct {
	store     ReadingStore
	alerts    AlertRecorder
	metrics   *observability.Metrics
	validator *core.Validator
	logger    *slog.Logger
}

// NewReadingHandler creates a ReadingHandler. metrics may be nil.
func NewReadingHandler(store ReadingStore, alerts AlertRecorder, metrics *observability.Metrics, val *core.Validator, logger *slog.Logger) *ReadingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadingHandler{store: store, alerts: alerts, metrics: metrics, validator: val, logger: logger}
}

// RegisterRoutes mounts the reading endpoints.
func (h *ReadingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/readings", h.HandleIngest)
	r.Get("/readings", h.HandleList)
}

type ingestRequest struct {
	SensorID  string     `json:"sensor_id" validate:"required"`
	Value     float64    `json:"value"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type ingestResponse struct {
	Reading types.Reading `json:"reading"`
	Alert   *types.Alert  `json:"alert,omitempty"`
}

// HandleIngest handles POST /api/readings: stores the reading and runs the
// alert lifecycle inline. Unknown sensors are a 404. A missing threshold
// configuration for the sensor's parameter is not an error; ingestion
// succeeds without lifecycle evaluation.
func (h *ReadingHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	sensor, err := h.store.GetSensor(r.Context(), req.SensorID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	reading := types.Reading{
		SensorID:  sensor.ID,
		Parameter: sensor.Type,
		Value:     req.Value,
		Timestamp: ts,
	}
	if err := h.store.Insert(r.Context(), &reading); err != nil {
		core.Error(w, r, err)
		return
	}
	h.metrics.RecordIngestion(r.Context(), 1)

	resp := ingestResponse{Reading: reading}
	alert, err := h.alerts.RecordReading(r.Context(), sensor.Type, req.Value)
	switch {
	case err == nil:
		resp.Alert = alert
	case types.IsNotFound(err):
		// No threshold ladder configured for this parameter.
	default:
		h.logger.ErrorContext(r.Context(), "alert lifecycle failed",
			"sensor_id", sensor.ID, "parameter", sensor.Type, "error", err)
	}

	core.Created(w, r, resp)
}

// HandleList handles GET /api/readings with parameter/sensor/time filters.
func (h *ReadingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := db.ListParams{
		SensorID: q.Get("sensor_id"),
		Scope:    scopeFromQuery(r),
		Limit:    intQuery(r, "limit", 0),
	}

	if raw := q.Get("parameter"); raw != "" {
		p, err := parameterFromString(raw)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		params.Parameter = p
	}

	var err error
	if params.Start, err = timeQuery(r, "start"); err != nil {
		core.Error(w, r, err)
		return
	}
	if params.End, err = timeQuery(r, "end"); err != nil {
		core.Error(w, r, err)
		return
	}

	readings, err := h.store.List(r.Context(), params)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.OK(w, r, readings)
}
