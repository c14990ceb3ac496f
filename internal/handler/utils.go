package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/repository"
	"EnergyMonitorAPI/internal/service"
)

const maxAdminBodyBytes = 16 * 1024

type ErrorResponse struct {
	Error   string               `json:"error"`
	Details []service.FieldError `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		return
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondFailure maps a service error to a status code. Anything it does not
// recognise is logged and reported as a bare 500.
func respondFailure(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrDeviceNotFound):
		respondError(w, http.StatusNotFound, "device not found")
	case errors.Is(err, repository.ErrReadingNotFound):
		respondError(w, http.StatusNotFound, "no readings found")
	case errors.Is(err, repository.ErrAlertNotFound):
		respondError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, repository.ErrDuplicateToken):
		respondError(w, http.StatusConflict, "device token already registered")
	default:
		log.Error("Failed to %s: %v", op, err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSONBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAdminBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: request body must be valid JSON", service.ErrInvalidInput)
	}
	return nil
}

func queryTime(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be an RFC 3339 date-time", service.ErrInvalidInput, key)
	}
	return t.UTC(), nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", service.ErrInvalidInput, key)
	}
	return n, nil
}
