package simulator

import (
	"context"
	"errors"
	"time"

	"EnergyMonitorAPI/internal/logger"
)

// Run sends one generated reading per interval until ctx is done.
func Run(ctx context.Context, gen *Generator, sender Sender, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycle := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("Mock sensor stopped after %d readings", cycle)
			return
		case now := <-ticker.C:
			cycle++
			payload := gen.Next(now)

			err := sender.Send(ctx, payload)
			var status *StatusError
			switch {
			case err == nil:
				log.Info("#%d | %vW | %vV | %vA | %v kWh", cycle,
					payload.Reading.Power, payload.Reading.Voltage, payload.Reading.Current, payload.Reading.Energy)
			case errors.As(err, &status):
				log.Error("#%d rejected: %v", cycle, status)
			case ctx.Err() != nil:
				log.Info("Mock sensor stopped after %d readings", cycle-1)
				return
			default:
				log.Error("#%d failed: %v", cycle, err)
			}
		}
	}
}
