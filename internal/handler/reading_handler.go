package handler

import (
	"net/http"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/report"
	"EnergyMonitorAPI/internal/repository"
	"EnergyMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReadingHandler struct {
	readingService *service.ReadingService
	log            *logger.Logger
}

func NewReadingHandler(readingService *service.ReadingService, log *logger.Logger) *ReadingHandler {
	return &ReadingHandler{
		readingService: readingService,
		log:            log,
	}
}

func (h *ReadingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/readings/{device_id}/latest", h.GetLatest).Methods("GET")
	r.HandleFunc("/readings/{device_id}", h.GetWindow).Methods("GET")
	r.HandleFunc("/reports", h.GetReport).Methods("GET")
}

func (h *ReadingHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]

	reading, err := h.readingService.Latest(r.Context(), deviceID)
	if err != nil {
		respondFailure(w, h.log, "get latest reading", err)
		return
	}

	respondJSON(w, http.StatusOK, reading)
}

func (h *ReadingHandler) GetWindow(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]

	from, err := queryTime(r, "from")
	if err != nil {
		respondFailure(w, h.log, "parse from", err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		respondFailure(w, h.log, "parse to", err)
		return
	}
	limit, err := queryInt(r, "limit", repository.MaxReportRows)
	if err != nil {
		respondFailure(w, h.log, "parse limit", err)
		return
	}

	readings, err := h.readingService.Window(r.Context(), deviceID, from, to, limit)
	if err != nil {
		respondFailure(w, h.log, "get readings", err)
		return
	}

	respondJSON(w, http.StatusOK, readings)
}

// GetReport serves the admin export as JSON, or as a workbook with format=xlsx.
func (h *ReadingHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	filter := repository.ReportFilter{DeviceID: r.URL.Query().Get("device_id")}

	var err error
	if filter.From, err = queryTime(r, "from"); err != nil {
		respondFailure(w, h.log, "parse from", err)
		return
	}
	if filter.To, err = queryTime(r, "to"); err != nil {
		respondFailure(w, h.log, "parse to", err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", repository.MaxReportRows); err != nil {
		respondFailure(w, h.log, "parse limit", err)
		return
	}

	readings, err := h.readingService.Report(r.Context(), filter)
	if err != nil {
		respondFailure(w, h.log, "build report", err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		respondJSON(w, http.StatusOK, readings)
	case "xlsx":
		data, err := report.BuildReadingsXLSX(readings)
		if err != nil {
			respondFailure(w, h.log, "export report", err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="readings.xlsx"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	default:
		respondError(w, http.StatusBadRequest, "format must be json or xlsx")
	}
}
