package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"EnergyMonitorAPI/internal/auth"
	"EnergyMonitorAPI/internal/database"
	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/ratelimit"
	"EnergyMonitorAPI/internal/repository"
	"EnergyMonitorAPI/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router  *mux.Router
	db      *database.Database
	devices *service.DeviceService
	alerts  *repository.AlertRepository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := database.NewSQLiteMemory(context.Background(), uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	deviceRepo := repository.NewDeviceRepository(db)
	readingRepo := repository.NewReadingRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	devices := service.NewDeviceService(deviceRepo, auth.NewTokenHasher("handler-test"), log)
	thresholds := service.NewThresholdService(repository.NewThresholdRepository(db), log)
	ingest := service.NewIngestService(devices, thresholds, readingRepo, alertRepo, ratelimit.New(time.Second), log)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	NewIngestHandler(ingest, log).RegisterRoutes(api)
	NewReadingHandler(service.NewReadingService(readingRepo, log), log).RegisterRoutes(api)
	NewAlertHandler(service.NewAlertService(alertRepo, log), log).RegisterRoutes(api)
	NewThresholdHandler(thresholds, log).RegisterRoutes(api)
	NewDeviceHandler(devices, log).RegisterRoutes(api)
	NewBillingHandler(service.NewBillingService(repository.NewBillingRepository(db), readingRepo, log), devices, log).RegisterRoutes(api)
	NewOverviewHandler(service.NewOverviewService(deviceRepo, readingRepo, alertRepo), log).RegisterRoutes(api)
	NewHealthHandler(db, nil, log).RegisterRoutes(router)

	return &testAPI{router: router, db: db, devices: devices, alerts: alertRepo}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(t *testing.T, name string) *service.RegisteredDevice {
	t.Helper()
	reg, err := a.devices.Register(context.Background(), service.RegisterDeviceRequest{Name: name})
	require.NoError(t, err)
	return reg
}

func telemetry(deviceID string, voltage, energy float64, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"deviceId": deviceID,
		"reading": map[string]float64{
			"voltage":     voltage,
			"current":     5,
			"power":       1150,
			"energy":      energy,
			"frequency":   60,
			"powerFactor": 0.95,
		},
		"timestamp": at.UTC().Format(time.RFC3339Nano),
	}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestIngestEndpointStatuses(t *testing.T) {
	api := newTestAPI(t)
	reg := api.register(t, "Panel")
	now := time.Now().UTC()

	rec := api.do(t, "POST", "/api/v1/ingest", telemetry(reg.Device.ID, 230, 1, now), bearer(reg.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ok IngestResponse
	decodeBody(t, rec, &ok)
	assert.Equal(t, "ok", ok.Status)
	assert.Positive(t, ok.ReadingID)

	rec = api.do(t, "POST", "/api/v1/ingest", telemetry(reg.Device.ID, 230, 1, now), bearer(reg.Token))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate limited"}`, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = api.do(t, "POST", "/api/v1/ingest", telemetry(reg.Device.ID, 230, 1, now), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	rec = api.do(t, "POST", "/api/v1/ingest", telemetry(reg.Device.ID, 230, 1, now), map[string]string{"X-Device-Token": "em_nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIngestEndpointValidationDetails(t *testing.T) {
	api := newTestAPI(t)
	reg := api.register(t, "Panel")

	rec := api.do(t, "POST", "/api/v1/ingest", telemetry(reg.Device.ID, 400, 1, time.Now()), map[string]string{"X-Device-Token": reg.Token})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body ErrorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "invalid payload", body.Error)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "reading.voltage", body.Details[0].Field)

	rec = api.do(t, "POST", "/api/v1/ingest", "not json", bearer(reg.Token))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReadingEndpoints(t *testing.T) {
	api := newTestAPI(t)
	reg := api.register(t, "Panel")
	now := time.Now().UTC().Truncate(time.Second)

	rec := api.do(t, "GET", "/api/v1/readings/"+reg.Device.ID+"/latest", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, "POST", "/api/v1/ingest", telemetry(reg.Device.ID, 231, 1, now.Add(-time.Minute)), bearer(reg.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, "GET", "/api/v1/readings/"+reg.Device.ID+"/latest", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var latest models.Reading
	decodeBody(t, rec, &latest)
	assert.Equal(t, 231.0, latest.Voltage)

	rec = api.do(t, "GET", "/api/v1/readings/"+reg.Device.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var window []models.Reading
	decodeBody(t, rec, &window)
	assert.Len(t, window, 1)

	rec = api.do(t, "GET", "/api/v1/readings/"+reg.Device.ID+"?from=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	from := now.Add(-40 * 24 * time.Hour).Format(time.RFC3339)
	rec = api.do(t, "GET", "/api/v1/readings/"+reg.Device.ID+"?from="+from, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, "GET", "/api/v1/reports?format=xlsx&device_id="+reg.Device.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = api.do(t, "GET", "/api/v1/reports?format=csv", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertEndpoints(t *testing.T) {
	api := newTestAPI(t)
	reg := api.register(t, "Panel")

	rec := api.do(t, "POST", "/api/v1/ingest", telemetry(reg.Device.ID, 265, 1, time.Now()), bearer(reg.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, "GET", "/api/v1/alerts?device_id="+reg.Device.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []models.Alert
	decodeBody(t, rec, &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertOvervoltage, alerts[0].Type)

	path := fmt.Sprintf("/api/v1/alerts/%s/read", alerts[0].ID)
	rec = api.do(t, "PATCH", path, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, "PATCH", path, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"alert not found"}`, rec.Body.String())

	rec = api.do(t, "GET", "/api/v1/alerts", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestThresholdEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "GET", "/api/v1/thresholds", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var current models.ThresholdSet
	decodeBody(t, rec, &current)
	assert.Equal(t, 250.0, current.Overvoltage)

	update := map[string]interface{}{
		"overvoltage": 245, "undervoltage": 205, "overcurrent": 60, "high_power": 15000, "device_offline_seconds": 120,
	}
	rec = api.do(t, "PUT", "/api/v1/thresholds", update, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, "GET", "/api/v1/thresholds", nil, nil)
	decodeBody(t, rec, &current)
	assert.Equal(t, 245.0, current.Overvoltage)

	update["undervoltage"] = 300
	rec = api.do(t, "PUT", "/api/v1/thresholds", update, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, "PUT", "/api/v1/thresholds", `{"overvoltage": 245, "surprise": true}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeviceEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "POST", "/api/v1/devices", map[string]string{"name": "Garage", "location": "Outside"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var reg service.RegisteredDevice
	decodeBody(t, rec, &reg)
	assert.NotEmpty(t, reg.Token)
	assert.NotContains(t, rec.Body.String(), "token_hash")

	rec = api.do(t, "GET", "/api/v1/devices", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), reg.Token)

	rec = api.do(t, "POST", "/api/v1/devices", map[string]string{"name": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, "POST", "/api/v1/devices/"+reg.Device.ID+"/deactivate", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, "POST", "/api/v1/ingest", telemetry(reg.Device.ID, 230, 1, time.Now()), bearer(reg.Token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, "POST", "/api/v1/devices/"+uuid.NewString()+"/deactivate", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBillingEndpoints(t *testing.T) {
	api := newTestAPI(t)
	reg := api.register(t, "Panel")
	month := time.Now().UTC().Format("2006-01")
	start := time.Date(time.Now().UTC().Year(), time.Now().UTC().Month(), 1, 0, 0, 0, 0, time.UTC)

	rec := api.do(t, "PUT", "/api/v1/billing/rate", map[string]float64{"rate_per_kwh": 12.5}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, "PUT", "/api/v1/billing/rate", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, "POST", "/api/v1/ingest", telemetry(reg.Device.ID, 230, 100, start.Add(time.Hour)), bearer(reg.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	time.Sleep(time.Second)
	rec = api.do(t, "POST", "/api/v1/ingest", telemetry(reg.Device.ID, 230, 102, start.Add(2*time.Hour)), bearer(reg.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, "GET", "/api/v1/billing/"+reg.Device.ID+"?month="+month, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap models.BillingSnapshot
	decodeBody(t, rec, &snap)
	assert.Equal(t, 2.0, snap.TotalKwh)
	assert.Equal(t, 25.0, snap.EstimatedCost)

	rec = api.do(t, "GET", "/api/v1/billing/"+reg.Device.ID+"/statement?month="+month, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = api.do(t, "GET", "/api/v1/billing/"+reg.Device.ID+"?month=2026-13", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, "GET", "/api/v1/billing/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, "GET", "/api/v1/billing/rate/history", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.BillingConfig
	decodeBody(t, rec, &history)
	assert.Len(t, history, 1)
}

func TestOverviewAndHealth(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "Panel")

	rec := api.do(t, "GET", "/api/v1/overview", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active_devices":1,"total_readings":0,"unread_alerts":0}`, rec.Body.String())

	rec = api.do(t, "GET", "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "mqtt")

	rec = api.do(t, "GET", "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type stubBroker bool

func (b stubBroker) IsConnected() bool { return bool(b) }

func TestHealthDegradedWhenBrokerDown(t *testing.T) {
	api := newTestAPI(t)
	router := mux.NewRouter()
	NewHealthHandler(api.db, stubBroker(false), logger.NewNop()).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body models.HealthResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "degraded", body.Status)
	require.NotNil(t, body.Services.MQTT)
	assert.False(t, *body.Services.MQTT)
}

func TestRespondFailureHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	respondFailure(rec, logger.NewNop(), "do thing", fmt.Errorf("pq: password authentication failed for user admin"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
