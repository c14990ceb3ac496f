// Package alerting turns a reading and the active threshold set into alerts.
package alerting

import (
	"fmt"
	"strconv"

	"EnergyMonitorAPI/internal/models"
)

// Rule checks one quantity of a reading against one threshold.
type Rule struct {
	Type      models.AlertType
	Value     func(r *models.Reading) float64
	Threshold func(t *models.ThresholdSet) float64
	Violated  func(value, threshold float64) bool
	Format    string
	Unit      string
}

func above(value, threshold float64) bool { return value > threshold }
func below(value, threshold float64) bool { return value < threshold }

// Rules are evaluated independently; a reading may violate several at once.
var Rules = []Rule{
	{
		Type:      models.AlertOvervoltage,
		Value:     func(r *models.Reading) float64 { return r.Voltage },
		Threshold: func(t *models.ThresholdSet) float64 { return t.Overvoltage },
		Violated:  above,
		Format:    "High voltage detected",
		Unit:      "V",
	},
	{
		Type:      models.AlertUndervoltage,
		Value:     func(r *models.Reading) float64 { return r.Voltage },
		Threshold: func(t *models.ThresholdSet) float64 { return t.Undervoltage },
		Violated:  below,
		Format:    "Low voltage detected",
		Unit:      "V",
	},
	{
		Type:      models.AlertOvercurrent,
		Value:     func(r *models.Reading) float64 { return r.Current },
		Threshold: func(t *models.ThresholdSet) float64 { return t.Overcurrent },
		Violated:  above,
		Format:    "High current detected",
		Unit:      "A",
	},
	{
		Type:      models.AlertHighPower,
		Value:     func(r *models.Reading) float64 { return r.Power },
		Threshold: func(t *models.ThresholdSet) float64 { return t.HighPower },
		Violated:  above,
		Format:    "High power draw detected",
		Unit:      "W",
	},
}

// Evaluate is pure: it reads nothing but its arguments and writes nothing.
// The returned alerts have DeviceID, Type, Value, Threshold and Message set;
// ID and CreatedAt are assigned by the store.
func Evaluate(reading *models.Reading, thresholds *models.ThresholdSet) []models.Alert {
	if reading == nil || thresholds == nil {
		return nil
	}

	var alerts []models.Alert
	for _, rule := range Rules {
		value := rule.Value(reading)
		threshold := rule.Threshold(thresholds)
		if !rule.Violated(value, threshold) {
			continue
		}
		alerts = append(alerts, models.Alert{
			DeviceID:  reading.DeviceID,
			Type:      rule.Type,
			Value:     value,
			Threshold: threshold,
			Message:   rule.message(value, threshold),
		})
	}
	return alerts
}

func (r Rule) message(value, threshold float64) string {
	return fmt.Sprintf("%s: %s%s (threshold: %s%s)", r.Format, num(value), r.Unit, num(threshold), r.Unit)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
