package service

import (
	"context"
	"time"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/repository"
)

const (
	DefaultReadingWindow = 24 * time.Hour
	MaxReadingWindow     = 31 * 24 * time.Hour
)

type ReadingQueries interface {
	TelemetryStore
	Report(ctx context.Context, filter repository.ReportFilter) ([]models.Reading, error)
}

type ReadingService struct {
	readings ReadingQueries
	clock    Clock
	log      *logger.Logger
}

func NewReadingService(readings ReadingQueries, log *logger.Logger) *ReadingService {
	return &ReadingService{
		readings: readings,
		clock:    systemClock{},
		log:      log,
	}
}

func (s *ReadingService) Latest(ctx context.Context, deviceID string) (*models.Reading, error) {
	return s.readings.Latest(ctx, deviceID)
}

// Window returns a device's readings between from and to, oldest first.
// Missing bounds default to the last 24 hours; windows over 31 days are refused.
func (s *ReadingService) Window(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]models.Reading, error) {
	from, to, err := s.bounds(from, to)
	if err != nil {
		return nil, err
	}
	return s.readings.Range(ctx, deviceID, from, to, limit)
}

// Report is the admin export: any device or all, optional bounds, at most
// repository.MaxReportRows rows.
func (s *ReadingService) Report(ctx context.Context, filter repository.ReportFilter) ([]models.Reading, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, invalidInput("from must not be after to")
	}
	return s.readings.Report(ctx, filter)
}

func (s *ReadingService) bounds(from, to time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = s.clock.Now()
	}
	if from.IsZero() {
		from = to.Add(-DefaultReadingWindow)
	}

	if from.After(to) {
		return from, to, invalidInput("from must not be after to")
	}
	if to.Sub(from) > MaxReadingWindow {
		return from, to, invalidInput("window cannot exceed %d days", int(MaxReadingWindow.Hours()/24))
	}

	return from, to, nil
}
