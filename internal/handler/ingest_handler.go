package handler

import (
	"errors"
	"net/http"

	"EnergyMonitorAPI/internal/auth"
	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type IngestResponse struct {
	Status    string `json:"status"`
	ReadingID int64  `json:"reading_id"`
}

type IngestHandler struct {
	ingestService *service.IngestService
	log           *logger.Logger
}

func NewIngestHandler(ingestService *service.IngestService, log *logger.Logger) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		log:           log,
	}
}

func (h *IngestHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ingest", h.Ingest).Methods("POST")
}

func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.ingestService.Ingest(r.Context(), service.Submission{
		Credential: auth.CredentialFromRequest(r),
		Body:       r.Body,
		Source:     "http",
	})
	if err != nil {
		h.respondIngestError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, IngestResponse{
		Status:    "ok",
		ReadingID: receipt.ReadingID,
	})
}

func (h *IngestHandler) respondIngestError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="devices"`)
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid payload",
			Details: verr.Fields,
		})
	case errors.Is(err, service.ErrRateLimited):
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusTooManyRequests, "rate limited")
	default:
		// Already logged by the pipeline.
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
