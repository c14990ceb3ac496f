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

const periodLayout = "2006-01"

type RateStore interface {
	CurrentRate(ctx context.Context) (*models.BillingConfig, error)
	AppendRate(ctx context.Context, ratePerKwh float64) (*models.BillingConfig, error)
	History(ctx context.Context, limit int) ([]models.BillingConfig, error)
}

type EnergySource interface {
	EnergySpan(ctx context.Context, deviceID string, from, to time.Time) (*repository.EnergySpan, error)
}

type BillingService struct {
	rates  RateStore
	energy EnergySource
	clock  Clock
	log    *logger.Logger
}

func NewBillingService(rates RateStore, energy EnergySource, log *logger.Logger) *BillingService {
	return &BillingService{
		rates:  rates,
		energy: energy,
		clock:  systemClock{},
		log:    log,
	}
}

// CurrentRate returns the newest configured rate, or the default when none is stored.
func (s *BillingService) CurrentRate(ctx context.Context) (*models.BillingConfig, error) {
	cfg, err := s.rates.CurrentRate(ctx)
	if errors.Is(err, repository.ErrBillingRateNotFound) {
		return &models.BillingConfig{RatePerKwh: models.DefaultRatePerKwh}, nil
	}
	return cfg, err
}

// SetRate appends a new rate; earlier rates are kept as history.
func (s *BillingService) SetRate(ctx context.Context, ratePerKwh float64) (*models.BillingConfig, error) {
	if math.IsNaN(ratePerKwh) || math.IsInf(ratePerKwh, 0) || ratePerKwh < 0 {
		return nil, invalidInput("rate_per_kwh must be a non-negative number")
	}

	cfg, err := s.rates.AppendRate(ctx, ratePerKwh)
	if err != nil {
		return nil, err
	}

	s.log.Info("Billing rate updated: %v per kWh", cfg.RatePerKwh)
	return cfg, nil
}

// SeedRate stores ratePerKwh only when no rate has been configured yet.
func (s *BillingService) SeedRate(ctx context.Context, ratePerKwh float64) error {
	_, err := s.rates.CurrentRate(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrBillingRateNotFound) {
		return err
	}

	_, err = s.SetRate(ctx, ratePerKwh)
	return err
}

func (s *BillingService) RateHistory(ctx context.Context, limit int) ([]models.BillingConfig, error) {
	return s.rates.History(ctx, limit)
}

// ParsePeriod parses "YYYY-MM" into the first instant of that month, UTC.
// An empty period means the current month.
func (s *BillingService) ParsePeriod(period string) (time.Time, error) {
	if period == "" {
		now := s.clock.Now().UTC()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}

	t, err := time.Parse(periodLayout, period)
	if err != nil {
		return time.Time{}, invalidInput("month must look like YYYY-MM")
	}
	return t, nil
}

// MonthlyEstimate bills the difference between the last and first cumulative
// energy counters recorded in the month. Fewer than two readings bill zero.
func (s *BillingService) MonthlyEstimate(ctx context.Context, deviceID, period string) (*models.BillingSnapshot, error) {
	start, err := s.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	end := start.AddDate(0, 1, 0)

	span, err := s.energy.EnergySpan(ctx, deviceID, start, end)
	if err != nil {
		return nil, err
	}

	total := 0.0
	if span.Count >= 2 {
		total = span.Last - span.First
	}
	if total < 0 {
		s.log.Warn("Energy counter went backwards for device %s in %s; billing zero", deviceID, start.Format(periodLayout))
		total = 0
	}

	rate, err := s.CurrentRate(ctx)
	if err != nil {
		return nil, err
	}

	return &models.BillingSnapshot{
		DeviceID:      deviceID,
		Period:        start.Format(periodLayout),
		PeriodStart:   start,
		PeriodEnd:     end,
		Readings:      span.Count,
		TotalKwh:      round(total, 3),
		RatePerKwh:    rate.RatePerKwh,
		EstimatedCost: round(total*rate.RatePerKwh, 2),
	}, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
