package alerting

import (
	"testing"

	"EnergyMonitorAPI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nominal() *models.Reading {
	return &models.Reading{
		DeviceID:    "dev-1",
		Voltage:     230,
		Current:     5,
		Power:       1150,
		Energy:      12.5,
		Frequency:   60,
		PowerFactor: 0.95,
	}
}

func defaults() *models.ThresholdSet {
	t := models.DefaultThresholds()
	return &t
}

func alertTypes(alerts []models.Alert) []models.AlertType {
	types := make([]models.AlertType, 0, len(alerts))
	for _, a := range alerts {
		types = append(types, a.Type)
	}
	return types
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *models.Reading)
		want   []models.AlertType
	}{
		{"nominal reading", func(r *models.Reading) {}, nil},
		{"overvoltage", func(r *models.Reading) { r.Voltage = 265 }, []models.AlertType{models.AlertOvervoltage}},
		{"undervoltage", func(r *models.Reading) { r.Voltage = 190 }, []models.AlertType{models.AlertUndervoltage}},
		{"overcurrent", func(r *models.Reading) { r.Current = 85 }, []models.AlertType{models.AlertOvercurrent}},
		{"high power", func(r *models.Reading) { r.Power = 21000 }, []models.AlertType{models.AlertHighPower}},
		{"voltage equal to overvoltage is not a violation", func(r *models.Reading) { r.Voltage = 250 }, nil},
		{"voltage equal to undervoltage is not a violation", func(r *models.Reading) { r.Voltage = 200 }, nil},
		{"current equal to threshold", func(r *models.Reading) { r.Current = 80 }, nil},
		{"power equal to threshold", func(r *models.Reading) { r.Power = 20000 }, nil},
		{
			"several rules at once",
			func(r *models.Reading) { r.Voltage = 260; r.Current = 90; r.Power = 23000 },
			[]models.AlertType{models.AlertOvervoltage, models.AlertOvercurrent, models.AlertHighPower},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := nominal()
			tt.modify(r)

			alerts := Evaluate(r, defaults())
			if tt.want == nil {
				assert.Empty(t, alerts)
				return
			}
			assert.ElementsMatch(t, tt.want, alertTypes(alerts))
			for _, a := range alerts {
				assert.Equal(t, "dev-1", a.DeviceID)
				assert.False(t, a.IsRead)
			}
		})
	}
}

func TestEvaluateOvervoltageDetails(t *testing.T) {
	r := nominal()
	r.Voltage = 265

	alerts := Evaluate(r, defaults())
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, models.AlertOvervoltage, a.Type)
	assert.Equal(t, 265.0, a.Value)
	assert.Equal(t, 250.0, a.Threshold)
	assert.Equal(t, "High voltage detected: 265V (threshold: 250V)", a.Message)
}

func TestEvaluateMessages(t *testing.T) {
	r := nominal()
	r.Voltage = 195.5
	r.Current = 81.2
	r.Power = 20500

	byType := map[models.AlertType]string{}
	for _, a := range Evaluate(r, defaults()) {
		byType[a.Type] = a.Message
	}

	assert.Equal(t, "Low voltage detected: 195.5V (threshold: 200V)", byType[models.AlertUndervoltage])
	assert.Equal(t, "High current detected: 81.2A (threshold: 80A)", byType[models.AlertOvercurrent])
	assert.Equal(t, "High power draw detected: 20500W (threshold: 20000W)", byType[models.AlertHighPower])
}

func TestEvaluateIsDeterministic(t *testing.T) {
	r := nominal()
	r.Voltage = 270
	r.Power = 24000
	th := defaults()

	first := Evaluate(r, th)
	second := Evaluate(r, th)
	assert.Equal(t, first, second)
	assert.Equal(t, 270.0, r.Voltage, "reading must not be modified")
}

func TestEvaluateUsesGivenThresholds(t *testing.T) {
	r := nominal()
	th := defaults()
	th.Overvoltage = 225

	alerts := Evaluate(r, th)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertOvervoltage, alerts[0].Type)
	assert.Equal(t, 225.0, alerts[0].Threshold)
}

func TestEvaluateNilInputs(t *testing.T) {
	assert.Nil(t, Evaluate(nil, defaults()))
	assert.Nil(t, Evaluate(nominal(), nil))
}
