package service

import (
	"context"
	"fmt"

	"EnergyMonitorAPI/internal/models"
)

type ActiveDeviceCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type ReadingCounter interface {
	Count(ctx context.Context) (int, error)
}

type UnreadAlertCounter interface {
	CountUnread(ctx context.Context) (int, error)
}

// OverviewService backs the admin console landing page.
type OverviewService struct {
	devices  ActiveDeviceCounter
	readings ReadingCounter
	alerts   UnreadAlertCounter
}

func NewOverviewService(devices ActiveDeviceCounter, readings ReadingCounter, alerts UnreadAlertCounter) *OverviewService {
	return &OverviewService{
		devices:  devices,
		readings: readings,
		alerts:   alerts,
	}
}

func (s *OverviewService) Get(ctx context.Context) (*models.Overview, error) {
	var (
		o   models.Overview
		err error
	)

	if o.ActiveDevices, err = s.devices.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	if o.TotalReadings, err = s.readings.Count(ctx); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	if o.UnreadAlerts, err = s.alerts.CountUnread(ctx); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}

	return &o, nil
}
