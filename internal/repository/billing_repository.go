package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"EnergyMonitorAPI/internal/database"
	"EnergyMonitorAPI/internal/models"
)

// BillingRepository stores the rate history. Rows are only ever appended;
// the newest row is the rate in force.
type BillingRepository struct {
	db *database.Database
}

func NewBillingRepository(db *database.Database) *BillingRepository {
	return &BillingRepository{db: db}
}

func (r *BillingRepository) CurrentRate(ctx context.Context) (*models.BillingConfig, error) {
	query := `
		SELECT id, rate_per_kwh, updated_at
		FROM billing_config
		ORDER BY id DESC
		LIMIT 1
	`

	var cfg models.BillingConfig
	err := r.db.DB.QueryRowContext(ctx, query).Scan(&cfg.ID, &cfg.RatePerKwh, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBillingRateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get billing rate: %w", err)
	}

	cfg.UpdatedAt = cfg.UpdatedAt.UTC()
	return &cfg, nil
}

func (r *BillingRepository) AppendRate(ctx context.Context, ratePerKwh float64) (*models.BillingConfig, error) {
	cfg := &models.BillingConfig{
		RatePerKwh: ratePerKwh,
		UpdatedAt:  time.Now().UTC(),
	}

	query := r.db.Rebind(`
		INSERT INTO billing_config (rate_per_kwh, updated_at)
		VALUES (?, ?)
		RETURNING id
	`)

	if err := r.db.DB.QueryRowContext(ctx, query, cfg.RatePerKwh, cfg.UpdatedAt).Scan(&cfg.ID); err != nil {
		return nil, fmt.Errorf("failed to insert billing rate: %w", err)
	}

	return cfg, nil
}

// History returns past rates, newest first.
func (r *BillingRepository) History(ctx context.Context, limit int) ([]models.BillingConfig, error) {
	if limit <= 0 {
		limit = 20
	}

	query := r.db.Rebind(`
		SELECT id, rate_per_kwh, updated_at
		FROM billing_config
		ORDER BY id DESC
		LIMIT ?
	`)

	rows, err := r.db.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query billing history: %w", err)
	}
	defer rows.Close()

	history := []models.BillingConfig{}
	for rows.Next() {
		var cfg models.BillingConfig
		if err := rows.Scan(&cfg.ID, &cfg.RatePerKwh, &cfg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan billing rate: %w", err)
		}
		cfg.UpdatedAt = cfg.UpdatedAt.UTC()
		history = append(history, cfg)
	}

	return history, rows.Err()
}
