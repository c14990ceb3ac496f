package service

import (
	"context"
	"time"

	"EnergyMonitorAPI/internal/models"
)

// DeviceRegistry resolves device credentials for the ingestion pipeline.
// Resolve returns repository.ErrDeviceNotFound for unknown tokens.
type DeviceRegistry interface {
	Resolve(ctx context.Context, token string) (*models.Device, error)
	Touch(ctx context.Context, deviceID string, at time.Time) error
}

type ThresholdStore interface {
	Current(ctx context.Context) (*models.ThresholdSet, error)
}

// TelemetryStore is append-only.
type TelemetryStore interface {
	Append(ctx context.Context, reading *models.Reading) error
	Latest(ctx context.Context, deviceID string) (*models.Reading, error)
	Range(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]models.Reading, error)
}

type AlertStore interface {
	Insert(ctx context.Context, alert *models.Alert) error
	ListUnread(ctx context.Context, deviceID string, limit int) ([]models.Alert, error)
	MarkRead(ctx context.Context, id string) error
}

// Admitter is the per-device rate limiter.
type Admitter interface {
	Admit(key string, now time.Time) bool
}

// Live event types.
const (
	EventReading = "reading"
	EventAlert   = "alert"
)

// EventPublisher fans events out to live subscribers. Publish must not block.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
