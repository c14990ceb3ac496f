package service

import (
	"context"
	"errors"
	"math"
	"time"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/repository"
)

type ThresholdRepo interface {
	Get(ctx context.Context) (*models.ThresholdSet, error)
	Seed(ctx context.Context, t *models.ThresholdSet) error
	Save(ctx context.Context, t *models.ThresholdSet) error
}

type ThresholdService struct {
	repo ThresholdRepo
	log  *logger.Logger
}

func NewThresholdService(repo ThresholdRepo, log *logger.Logger) *ThresholdService {
	return &ThresholdService{repo: repo, log: log}
}

// Current returns the active threshold set, or the defaults if none was ever stored.
func (s *ThresholdService) Current(ctx context.Context) (*models.ThresholdSet, error) {
	t, err := s.repo.Get(ctx)
	if errors.Is(err, repository.ErrThresholdsNotFound) {
		s.log.Warn("No threshold set stored, using defaults")
		defaults := models.DefaultThresholds()
		return &defaults, nil
	}
	return t, err
}

func (s *ThresholdService) Update(ctx context.Context, t models.ThresholdSet) (*models.ThresholdSet, error) {
	if err := validateThresholds(&t); err != nil {
		return nil, err
	}

	t.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, &t); err != nil {
		return nil, err
	}

	s.log.Info("Thresholds updated: over=%vV, under=%vV, current=%vA, power=%vW",
		t.Overvoltage, t.Undervoltage, t.Overcurrent, t.HighPower)

	return &t, nil
}

// Seed stores t (or the defaults when nil) unless a threshold set exists.
func (s *ThresholdService) Seed(ctx context.Context, t *models.ThresholdSet) error {
	if t == nil {
		defaults := models.DefaultThresholds()
		t = &defaults
	}
	if err := validateThresholds(t); err != nil {
		return err
	}
	return s.repo.Seed(ctx, t)
}

func validateThresholds(t *models.ThresholdSet) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"overvoltage", t.Overvoltage},
		{"undervoltage", t.Undervoltage},
		{"overcurrent", t.Overcurrent},
		{"high_power", t.HighPower},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value <= 0 {
			return invalidInput("%s must be a positive number", f.name)
		}
	}

	if t.Undervoltage >= t.Overvoltage {
		return invalidInput("undervoltage must be below overvoltage")
	}
	if t.DeviceOfflineSeconds < 0 {
		return invalidInput("device_offline_seconds cannot be negative")
	}

	return nil
}
