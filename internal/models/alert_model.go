package models

import "time"

type AlertType string

const (
	AlertOvervoltage   AlertType = "OVERVOLTAGE"
	AlertUndervoltage  AlertType = "UNDERVOLTAGE"
	AlertOvercurrent   AlertType = "OVERCURRENT"
	AlertHighPower     AlertType = "HIGH_POWER"
	AlertDeviceOffline AlertType = "DEVICE_OFFLINE"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertOvervoltage, AlertUndervoltage, AlertOvercurrent, AlertHighPower, AlertDeviceOffline:
		return true
	}
	return false
}

// Alert is raised once per violated rule per reading. Only IsRead ever changes.
type Alert struct {
	ID        string    `json:"id" db:"id"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	Type      AlertType `json:"type" db:"type"`
	Value     float64   `json:"value" db:"value"`
	Threshold float64   `json:"threshold" db:"threshold"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
