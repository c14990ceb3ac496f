package handler

import (
	"net/http"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type OverviewHandler struct {
	overviewService *service.OverviewService
	log             *logger.Logger
}

func NewOverviewHandler(overviewService *service.OverviewService, log *logger.Logger) *OverviewHandler {
	return &OverviewHandler{
		overviewService: overviewService,
		log:             log,
	}
}

func (h *OverviewHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/overview", h.Get).Methods("GET")
}

func (h *OverviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	overview, err := h.overviewService.Get(r.Context())
	if err != nil {
		respondFailure(w, h.log, "build overview", err)
		return
	}

	respondJSON(w, http.StatusOK, overview)
}
