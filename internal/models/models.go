// internal/models/models.go

package models

import (
	"time"
)

type Device struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Location   *string    `json:"location" db:"location"`
	TokenHash  string     `json:"-" db:"token_hash"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	LastSeenAt *time.Time `json:"last_seen_at" db:"last_seen_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// MeterReading is one sample from a single-phase power meter.
type MeterReading struct {
	Voltage     float64 `json:"voltage"`
	Current     float64 `json:"current"`
	Power       float64 `json:"power"`
	Energy      float64 `json:"energy"`
	Frequency   float64 `json:"frequency"`
	PowerFactor float64 `json:"powerFactor"`
}

// Reading is a stored MeterReading. Rows are never updated or deleted.
type Reading struct {
	ID          int64     `json:"id" db:"id"`
	DeviceID    string    `json:"device_id" db:"device_id"`
	Voltage     float64   `json:"voltage" db:"voltage"`
	Current     float64   `json:"current" db:"current"`
	Power       float64   `json:"power" db:"power"`
	Energy      float64   `json:"energy_kwh" db:"energy_kwh"`
	Frequency   float64   `json:"frequency" db:"frequency"`
	PowerFactor float64   `json:"power_factor" db:"power_factor"`
	RecordedAt  time.Time `json:"recorded_at" db:"recorded_at"`
	ReceivedAt  time.Time `json:"received_at" db:"received_at"`
}

func NewReading(deviceID string, m MeterReading, recordedAt, receivedAt time.Time) *Reading {
	return &Reading{
		DeviceID:    deviceID,
		Voltage:     m.Voltage,
		Current:     m.Current,
		Power:       m.Power,
		Energy:      m.Energy,
		Frequency:   m.Frequency,
		PowerFactor: m.PowerFactor,
		RecordedAt:  recordedAt.UTC(),
		ReceivedAt:  receivedAt.UTC(),
	}
}

// TelemetryPayload is the device-facing ingestion body.
type TelemetryPayload struct {
	DeviceID  string       `json:"deviceId"`
	Reading   MeterReading `json:"reading"`
	Timestamp time.Time    `json:"timestamp"`
}

type ThresholdSet struct {
	Overvoltage          float64   `json:"overvoltage" db:"overvoltage"`
	Undervoltage         float64   `json:"undervoltage" db:"undervoltage"`
	Overcurrent          float64   `json:"overcurrent" db:"overcurrent"`
	HighPower            float64   `json:"high_power" db:"high_power"`
	DeviceOfflineSeconds int       `json:"device_offline_seconds" db:"device_offline_seconds"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		Overvoltage:          250,
		Undervoltage:         200,
		Overcurrent:          80,
		HighPower:            20000,
		DeviceOfflineSeconds: 60,
	}
}

type BillingConfig struct {
	ID         int64     `json:"id" db:"id"`
	RatePerKwh float64   `json:"rate_per_kwh" db:"rate_per_kwh"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

const DefaultRatePerKwh = 10.0

type BillingSnapshot struct {
	DeviceID      string    `json:"device_id"`
	Period        string    `json:"period"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	Readings      int       `json:"readings"`
	TotalKwh      float64   `json:"total_kwh"`
	RatePerKwh    float64   `json:"rate_per_kwh"`
	EstimatedCost float64   `json:"estimated_cost"`
}

type Overview struct {
	ActiveDevices int `json:"active_devices"`
	TotalReadings int `json:"total_readings"`
	UnreadAlerts  int `json:"unread_alerts"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  struct {
		Database bool  `json:"database"`
		MQTT     *bool `json:"mqtt,omitempty"`
	} `json:"services"`
}
