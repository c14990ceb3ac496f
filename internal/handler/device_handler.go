package handler

import (
	"net/http"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type DeviceHandler struct {
	deviceService *service.DeviceService
	log           *logger.Logger
}

func NewDeviceHandler(deviceService *service.DeviceService, log *logger.Logger) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
		log:           log,
	}
}

func (h *DeviceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/devices", h.List).Methods("GET")
	r.HandleFunc("/devices", h.Register).Methods("POST")
	r.HandleFunc("/devices/{id}", h.Get).Methods("GET")
	r.HandleFunc("/devices/{id}/deactivate", h.Deactivate).Methods("POST")
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.deviceService.List(r.Context())
	if err != nil {
		respondFailure(w, h.log, "list devices", err)
		return
	}

	respondJSON(w, http.StatusOK, devices)
}

// Register answers with the raw token. It is not retrievable afterwards.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterDeviceRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondFailure(w, h.log, "decode device", err)
		return
	}

	registered, err := h.deviceService.Register(r.Context(), req)
	if err != nil {
		respondFailure(w, h.log, "register device", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusCreated, registered)
}

func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	device, err := h.deviceService.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, h.log, "get device", err)
		return
	}

	respondJSON(w, http.StatusOK, device)
}

func (h *DeviceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.deviceService.Deactivate(r.Context(), id); err != nil {
		respondFailure(w, h.log, "deactivate device", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "device deactivated"})
}
