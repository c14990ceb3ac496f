package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"EnergyMonitorAPI/internal/models"
)

var ErrUnknownSpike = errors.New("unknown spike kind")

type SpikeKind string

const (
	SpikeOvervoltage SpikeKind = "overvoltage"
	SpikeOvercurrent SpikeKind = "overcurrent"
	SpikeHighPower   SpikeKind = "highpower"
)

// Generator produces plausible single-phase readings for one device. Energy
// is cumulative across calls.
type Generator struct {
	deviceID string
	interval time.Duration
	rng      *rand.Rand
	energy   float64
}

func NewGenerator(deviceID string, interval time.Duration, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}

	return &Generator{
		deviceID: deviceID,
		interval: interval,
		rng:      rng,
	}
}

// Next returns the reading for the sample taken at now. The load follows
// the local hour: morning and evening peaks, a night valley.
func (g *Generator) Next(now time.Time) models.TelemetryPayload {
	load := g.loadMultiplier(now.Hour())

	voltage := round(g.between(215, 225), 1)
	current := round(g.between(8, 20)*load, 3)
	powerFactor := round(g.between(0.85, 0.98), 3)
	power := round(voltage*current*powerFactor, 2)
	frequency := round(g.between(59.9, 60.1), 2)

	g.energy += power * g.interval.Hours() / 1000

	return models.TelemetryPayload{
		DeviceID: g.deviceID,
		Reading: models.MeterReading{
			Voltage:     voltage,
			Current:     current,
			Power:       power,
			Energy:      round(g.energy, 4),
			Frequency:   frequency,
			PowerFactor: powerFactor,
		},
		Timestamp: now.UTC(),
	}
}

func (g *Generator) loadMultiplier(hour int) float64 {
	switch {
	case hour >= 8 && hour <= 12:
		return g.between(1.2, 1.8)
	case hour >= 18 && hour <= 22:
		return g.between(1.5, 2.0)
	case hour >= 23 || hour <= 6:
		return g.between(0.4, 0.7)
	default:
		return g.between(0.8, 1.2)
	}
}

func (g *Generator) between(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}

// Spike builds a reading that breaches one of the default thresholds.
func Spike(deviceID string, kind SpikeKind, now time.Time) (models.TelemetryPayload, error) {
	reading := models.MeterReading{
		Voltage:     220,
		Current:     15,
		Power:       3300,
		Energy:      100,
		Frequency:   60,
		PowerFactor: 0.95,
	}

	switch kind {
	case SpikeOvervoltage:
		reading.Voltage, reading.Power = 265, 3975
	case SpikeOvercurrent:
		reading.Current, reading.Power = 95, 20900
	case SpikeHighPower:
		reading.Current, reading.Power = 50, 22000
	default:
		return models.TelemetryPayload{}, fmt.Errorf("%w: %q", ErrUnknownSpike, kind)
	}

	return models.TelemetryPayload{
		DeviceID:  deviceID,
		Reading:   reading,
		Timestamp: now.UTC(),
	}, nil
}

func round(v float64, decimals int) float64 {
	f := math.Pow(10, float64(decimals))
	return math.Round(v*f) / f
}
