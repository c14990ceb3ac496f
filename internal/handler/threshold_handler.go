package handler

import (
	"net/http"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type ThresholdHandler struct {
	thresholdService *service.ThresholdService
	log              *logger.Logger
}

func NewThresholdHandler(thresholdService *service.ThresholdService, log *logger.Logger) *ThresholdHandler {
	return &ThresholdHandler{
		thresholdService: thresholdService,
		log:              log,
	}
}

func (h *ThresholdHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/thresholds", h.Get).Methods("GET")
	r.HandleFunc("/thresholds", h.Update).Methods("PUT")
}

func (h *ThresholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	thresholds, err := h.thresholdService.Current(r.Context())
	if err != nil {
		respondFailure(w, h.log, "get thresholds", err)
		return
	}

	respondJSON(w, http.StatusOK, thresholds)
}

func (h *ThresholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.ThresholdSet
	if err := decodeJSONBody(r, &req); err != nil {
		respondFailure(w, h.log, "decode thresholds", err)
		return
	}

	updated, err := h.thresholdService.Update(r.Context(), req)
	if err != nil {
		respondFailure(w, h.log, "update thresholds", err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}
