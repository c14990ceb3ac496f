package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"EnergyMonitorAPI/internal/models"
)

// Physical bounds for a single-phase residential meter.
var readingBounds = []struct {
	field  string
	min    float64
	max    float64
	hasMax bool
	value  func(r *wireReading) *float64
}{
	{"reading.voltage", 80, 280, true, func(r *wireReading) *float64 { return r.Voltage }},
	{"reading.current", 0, 100, true, func(r *wireReading) *float64 { return r.Current }},
	{"reading.power", 0, 25000, true, func(r *wireReading) *float64 { return r.Power }},
	{"reading.energy", 0, 0, false, func(r *wireReading) *float64 { return r.Energy }},
	{"reading.frequency", 45, 65, true, func(r *wireReading) *float64 { return r.Frequency }},
	{"reading.powerFactor", 0, 1, true, func(r *wireReading) *float64 { return r.PowerFactor }},
}

// Pointer fields tell "missing" apart from zero.
type wireReading struct {
	Voltage     *float64 `json:"voltage"`
	Current     *float64 `json:"current"`
	Power       *float64 `json:"power"`
	Energy      *float64 `json:"energy"`
	Frequency   *float64 `json:"frequency"`
	PowerFactor *float64 `json:"powerFactor"`
}

type wirePayload struct {
	DeviceID  *string      `json:"deviceId"`
	Reading   *wireReading `json:"reading"`
	Timestamp *string      `json:"timestamp"`
}

// DecodeTelemetry reads at most maxBytes from body and validates it into a
// TelemetryPayload. Any problem yields a *ValidationError.
func DecodeTelemetry(body io.Reader, maxBytes int64) (*models.TelemetryPayload, error) {
	verr := &ValidationError{}

	if body == nil {
		verr.add("body", "is required")
		return nil, verr
	}

	data, err := io.ReadAll(io.LimitReader(body, maxBytes+1))
	if err != nil {
		verr.add("body", "could not be read")
		return nil, verr
	}
	if int64(len(data)) > maxBytes {
		verr.add("body", fmt.Sprintf("exceeds %d bytes", maxBytes))
		return nil, verr
	}

	var wire wirePayload
	if err := json.Unmarshal(data, &wire); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			verr.add(typeErr.Field, "must be a "+jsonKind(typeErr.Type.Kind().String()))
		} else {
			verr.add("body", "must be a JSON object")
		}
		return nil, verr
	}

	payload := &models.TelemetryPayload{}

	if wire.DeviceID == nil || *wire.DeviceID == "" {
		verr.add("deviceId", "is required")
	} else {
		payload.DeviceID = *wire.DeviceID
	}

	if wire.Reading == nil {
		verr.add("reading", "is required")
	} else {
		values := make([]float64, len(readingBounds))
		for i, b := range readingBounds {
			v := b.value(wire.Reading)
			switch {
			case v == nil:
				verr.add(b.field, "is required")
			case *v < b.min || (b.hasMax && *v > b.max):
				verr.add(b.field, boundsMessage(b.min, b.max, b.hasMax))
			default:
				values[i] = *v
			}
		}
		payload.Reading = models.MeterReading{
			Voltage:     values[0],
			Current:     values[1],
			Power:       values[2],
			Energy:      values[3],
			Frequency:   values[4],
			PowerFactor: values[5],
		}
	}

	if wire.Timestamp == nil || *wire.Timestamp == "" {
		verr.add("timestamp", "is required")
	} else if ts, err := time.Parse(time.RFC3339Nano, *wire.Timestamp); err != nil {
		verr.add("timestamp", "must be an RFC 3339 date-time")
	} else {
		payload.Timestamp = ts.UTC()
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	return payload, nil
}

func boundsMessage(min, max float64, hasMax bool) string {
	if !hasMax {
		return "must be at least " + strconv.FormatFloat(min, 'f', -1, 64)
	}
	return fmt.Sprintf("must be between %s and %s",
		strconv.FormatFloat(min, 'f', -1, 64),
		strconv.FormatFloat(max, 'f', -1, 64))
}

func jsonKind(goKind string) string {
	switch goKind {
	case "float64":
		return "number"
	case "struct", "ptr":
		return "object"
	default:
		return goKind
	}
}
