package handler

import (
	"net/http"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/repository"
	"EnergyMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type AlertHandler struct {
	alertService *service.AlertService
	log          *logger.Logger
}

func NewAlertHandler(alertService *service.AlertService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		log:          log,
	}
}

func (h *AlertHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/alerts", h.ListUnread).Methods("GET")
	r.HandleFunc("/alerts/{id}/read", h.MarkRead).Methods("PATCH")
}

func (h *AlertHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", repository.MaxUnreadAlerts)
	if err != nil {
		respondFailure(w, h.log, "parse limit", err)
		return
	}

	alerts, err := h.alertService.ListUnread(r.Context(), r.URL.Query().Get("device_id"), limit)
	if err != nil {
		respondFailure(w, h.log, "list unread alerts", err)
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.alertService.MarkRead(r.Context(), id); err != nil {
		respondFailure(w, h.log, "mark alert read", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "alert marked read"})
}
