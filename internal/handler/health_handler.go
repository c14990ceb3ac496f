package handler

import (
	"context"
	"net/http"
	"time"

	"EnergyMonitorAPI/internal/database"
	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/models"

	"github.com/gorilla/mux"
)

// BrokerStatus reports MQTT connectivity. A nil BrokerStatus means MQTT is disabled.
type BrokerStatus interface {
	IsConnected() bool
}

type HealthHandler struct {
	db     *database.Database
	broker BrokerStatus
	log    *logger.Logger
}

func NewHealthHandler(db *database.Database, broker BrokerStatus, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		broker: broker,
		log:    log,
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/health/live", h.Liveness).Methods("GET")
	r.HandleFunc("/health/ready", h.Readiness).Methods("GET")
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}

	dbErr := h.db.Health(ctx)
	response.Services.Database = dbErr == nil
	healthy := response.Services.Database

	if h.broker != nil {
		connected := h.broker.IsConnected()
		response.Services.MQTT = &connected
		healthy = healthy && connected
	}

	statusCode := http.StatusOK
	if !healthy {
		response.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
		h.log.Warn("Health check degraded - DB error: %v, MQTT: %v", dbErr, response.Services.MQTT != nil && *response.Services.MQTT)
	}

	respondJSON(w, statusCode, response)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// Readiness only checks the database.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		h.log.Warn("Readiness check failed - DB error: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
