package service

import (
	"sync"
	"time"

	"EnergyMonitorAPI/internal/models"
)

const alertGatePruneAt = 10000

type alertKey struct {
	deviceID  string
	alertType models.AlertType
}

// alertGate suppresses repeats of the same alert type for a device inside a
// cooldown window. A zero cooldown lets everything through.
type alertGate struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[alertKey]time.Time
}

func newAlertGate(cooldown time.Duration) *alertGate {
	return &alertGate{
		cooldown: cooldown,
		last:     make(map[alertKey]time.Time),
	}
}

func (g *alertGate) suppressed(deviceID string, t models.AlertType, now time.Time) bool {
	if g.cooldown <= 0 {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.last[alertKey{deviceID, t}]
	return ok && now.Sub(last) < g.cooldown
}

func (g *alertGate) record(deviceID string, t models.AlertType, now time.Time) {
	if g.cooldown <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.last) >= alertGatePruneAt {
		for k, at := range g.last {
			if now.Sub(at) >= g.cooldown {
				delete(g.last, k)
			}
		}
	}
	g.last[alertKey{deviceID, t}] = now
}
