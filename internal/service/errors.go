package service

import (
	"errors"
	"fmt"
	"strings"
)

// Ingestion outcomes other than success. Every failed Ingest call matches
// exactly one of these through errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrRateLimited     = errors.New("rate limited")
	ErrStorageFailure  = errors.New("storage failure")
)

// ErrInvalidInput is returned by the admin operations for bad arguments.
var ErrInvalidInput = errors.New("invalid input")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a telemetry payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPayload
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
