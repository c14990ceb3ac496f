package service

import (
	"context"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/repository"

	"github.com/google/uuid"
)

type AlertService struct {
	store AlertStore
	log   *logger.Logger
}

func NewAlertService(store AlertStore, log *logger.Logger) *AlertService {
	return &AlertService{store: store, log: log}
}

// ListUnread returns unread alerts newest first, at most 50.
func (s *AlertService) ListUnread(ctx context.Context, deviceID string, limit int) ([]models.Alert, error) {
	if deviceID != "" {
		if _, err := uuid.Parse(deviceID); err != nil {
			return []models.Alert{}, nil
		}
	}
	return s.store.ListUnread(ctx, deviceID, limit)
}

// MarkRead returns repository.ErrAlertNotFound for unknown or already-read alerts.
func (s *AlertService) MarkRead(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrAlertNotFound
	}

	if err := s.store.MarkRead(ctx, id); err != nil {
		return err
	}

	s.log.Debug("Alert marked read: %s", id)
	return nil
}
