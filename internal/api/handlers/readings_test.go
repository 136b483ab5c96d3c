package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floodwatch/internal/core"
	"floodwatch/internal/db"
	"floodwatch/internal/types"
)

type mockReadingStore struct {
	sensor    *types.Sensor
	sensorErr error
	insertErr error
	readings  []types.Reading
	listErr   error

	inserted  []types.Reading
	gotParams db.ListParams
}

func (m *mockReadingStore) GetSensor(_ context.Context, _ string) (*types.Sensor, error) {
	if m.sensorErr != nil {
		return nil, m.sensorErr
	}
	return m.sensor, nil
}

func (m *mockReadingStore) Insert(_ context.Context, reading *types.Reading) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, *reading)
	return nil
}

func (m *mockReadingStore) List(_ context.Context, p db.ListParams) ([]types.Reading, error) {
	m.gotParams = p
	return m.readings, m.listErr
}

type mockAlertRecorder struct {
	alert *types.Alert
	err   error
	calls int
}

func (m *mockAlertRecorder) RecordReading(_ context.Context, _ types.Parameter, _ float64) (*types.Alert, error) {
	m.calls++
	return m.alert, m.err
}

func readingRouter(store *mockReadingStore, alerts *mockAlertRecorder) *chi.Mux {
	r := chi.NewRouter()
	NewReadingHandler(store, alerts, nil, core.NewValidator(), testLogger()).RegisterRoutes(r)
	return r
}

func rainSensor() *types.Sensor {
	return &types.Sensor{ID: "sns_1", Type: types.ParameterRainfall, Active: true}
}

func TestHandleIngest_StoresReadingAndAlert(t *testing.T) {
	store := &mockReadingStore{sensor: rainSensor()}
	alerts := &mockAlertRecorder{alert: &types.Alert{ID: "alt_1", Severity: types.TierWarning}}
	router := readingRouter(store, alerts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/readings",
		strings.NewReader(`{"sensor_id":"sns_1","value":55}`)))

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, types.ParameterRainfall, store.inserted[0].Parameter)
	assert.Equal(t, 55.0, store.inserted[0].Value)
	assert.False(t, store.inserted[0].Timestamp.IsZero())

	var body struct {
		Data struct {
			Reading types.Reading `json:"reading"`
			Alert   *types.Alert  `json:"alert"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Data.Alert)
	assert.Equal(t, "alt_1", body.Data.Alert.ID)
}

func TestHandleIngest_HonorsExplicitTimestamp(t *testing.T) {
	store := &mockReadingStore{sensor: rainSensor()}
	alerts := &mockAlertRecorder{}
	router := readingRouter(store, alerts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/readings",
		strings.NewReader(`{"sensor_id":"sns_1","value":3,"timestamp":"2026-03-01T08:30:00Z"}`)))

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.inserted, 1)
	want := time.Date(2026, time.March, 1, 8, 30, 0, 0, time.UTC)
	assert.True(t, store.inserted[0].Timestamp.Equal(want))
}

func TestHandleIngest_MissingSensorIDFailsValidation(t *testing.T) {
	router := readingRouter(&mockReadingStore{sensor: rainSensor()}, &mockAlertRecorder{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/readings",
		strings.NewReader(`{"value":5}`)))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(types.ErrCodeValidationMissingField))
}

func TestHandleIngest_UnknownSensorIs404(t *testing.T) {
	store := &mockReadingStore{
		sensorErr: types.NewAppError(types.ErrCodeNotFoundSensor, "sensor not found", nil),
	}
	router := readingRouter(store, &mockAlertRecorder{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/readings",
		strings.NewReader(`{"sensor_id":"sns_missing","value":5}`)))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.inserted)
}

func TestHandleIngest_NoLadderStillSucceeds(t *testing.T) {
	store := &mockReadingStore{sensor: rainSensor()}
	alerts := &mockAlertRecorder{
		err: types.NewAppError(types.ErrCodeNotFoundThreshold, "no ladder", nil),
	}
	router := readingRouter(store, alerts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/readings",
		strings.NewReader(`{"sensor_id":"sns_1","value":5}`)))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, alerts.calls)
	assert.NotContains(t, w.Body.String(), `"alert"`)
}

func TestHandleList_BuildsQueryFilters(t *testing.T) {
	store := &mockReadingStore{}
	router := readingRouter(store, &mockAlertRecorder{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/readings?parameter=rainfall&sensor_id=sns_1&start=2026-03-01T00:00:00Z&limit=50&municipality_id=mun_1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.ParameterRainfall, store.gotParams.Parameter)
	assert.Equal(t, "sns_1", store.gotParams.SensorID)
	assert.Equal(t, 50, store.gotParams.Limit)
	assert.Equal(t, types.MunicipalityScope("mun_1"), store.gotParams.Scope)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), store.gotParams.Start)
	assert.True(t, store.gotParams.End.IsZero())
}

func TestHandleList_RejectsUnknownParameter(t *testing.T) {
	router := readingRouter(&mockReadingStore{}, &mockAlertRecorder{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readings?parameter=wind_speed", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "valid_parameters")
}

func TestHandleList_RejectsMalformedTime(t *testing.T) {
	router := readingRouter(&mockReadingStore{}, &mockAlertRecorder{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readings?start=yesterday", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
