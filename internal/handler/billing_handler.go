package handler

import (
	"fmt"
	"net/http"
	"time"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/metrics"
	"EnergyMonitorAPI/internal/report"
	"EnergyMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type rateRequest struct {
	RatePerKwh *float64 `json:"rate_per_kwh"`
}

type BillingHandler struct {
	billingService *service.BillingService
	deviceService  *service.DeviceService
	log            *logger.Logger
}

func NewBillingHandler(billingService *service.BillingService, deviceService *service.DeviceService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		deviceService:  deviceService,
		log:            log,
	}
}

func (h *BillingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/billing/rate", h.GetRate).Methods("GET")
	r.HandleFunc("/billing/rate", h.SetRate).Methods("PUT")
	r.HandleFunc("/billing/rate/history", h.GetRateHistory).Methods("GET")
	r.HandleFunc("/billing/{device_id}", h.GetEstimate).Methods("GET")
	r.HandleFunc("/billing/{device_id}/statement", h.GetStatement).Methods("GET")
}

func (h *BillingHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.billingService.CurrentRate(r.Context())
	if err != nil {
		respondFailure(w, h.log, "get billing rate", err)
		return
	}

	respondJSON(w, http.StatusOK, rate)
}

func (h *BillingHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondFailure(w, h.log, "decode billing rate", err)
		return
	}
	if req.RatePerKwh == nil {
		respondError(w, http.StatusBadRequest, "rate_per_kwh is required")
		return
	}

	rate, err := h.billingService.SetRate(r.Context(), *req.RatePerKwh)
	if err != nil {
		respondFailure(w, h.log, "set billing rate", err)
		return
	}

	respondJSON(w, http.StatusOK, rate)
}

func (h *BillingHandler) GetRateHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		respondFailure(w, h.log, "parse limit", err)
		return
	}

	history, err := h.billingService.RateHistory(r.Context(), limit)
	if err != nil {
		respondFailure(w, h.log, "get billing rate history", err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (h *BillingHandler) GetEstimate(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]

	if _, err := h.deviceService.Get(r.Context(), deviceID); err != nil {
		respondFailure(w, h.log, "get device", err)
		return
	}

	snapshot, err := h.billingService.MonthlyEstimate(r.Context(), deviceID, r.URL.Query().Get("month"))
	if err != nil {
		respondFailure(w, h.log, "estimate bill", err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (h *BillingHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]

	device, err := h.deviceService.Get(r.Context(), deviceID)
	if err != nil {
		respondFailure(w, h.log, "get device", err)
		return
	}

	snapshot, err := h.billingService.MonthlyEstimate(r.Context(), deviceID, r.URL.Query().Get("month"))
	if err != nil {
		respondFailure(w, h.log, "estimate bill", err)
		return
	}

	data, err := report.BuildStatementPDF(device, snapshot, time.Now())
	if err != nil {
		metrics.IncStatementExport("failed")
		respondFailure(w, h.log, "render statement", err)
		return
	}
	metrics.IncStatementExport("ok")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.pdf"`, snapshot.Period))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
