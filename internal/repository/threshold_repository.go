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

// ThresholdRepository keeps the single global threshold row (id = 1).
type ThresholdRepository struct {
	db *database.Database
}

func NewThresholdRepository(db *database.Database) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

func (r *ThresholdRepository) Get(ctx context.Context) (*models.ThresholdSet, error) {
	query := `
		SELECT overvoltage, undervoltage, overcurrent, high_power, device_offline_seconds, updated_at
		FROM alert_thresholds
		WHERE id = 1
	`

	var t models.ThresholdSet
	err := r.db.DB.QueryRowContext(ctx, query).Scan(
		&t.Overvoltage,
		&t.Undervoltage,
		&t.Overcurrent,
		&t.HighPower,
		&t.DeviceOfflineSeconds,
		&t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThresholdsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thresholds: %w", err)
	}

	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

// Seed inserts the row only if none exists yet.
func (r *ThresholdRepository) Seed(ctx context.Context, t *models.ThresholdSet) error {
	return r.write(ctx, t, "DO NOTHING")
}

// Save replaces the threshold set.
func (r *ThresholdRepository) Save(ctx context.Context, t *models.ThresholdSet) error {
	return r.write(ctx, t, `DO UPDATE SET
		overvoltage = excluded.overvoltage,
		undervoltage = excluded.undervoltage,
		overcurrent = excluded.overcurrent,
		high_power = excluded.high_power,
		device_offline_seconds = excluded.device_offline_seconds,
		updated_at = excluded.updated_at`)
}

func (r *ThresholdRepository) write(ctx context.Context, t *models.ThresholdSet, onConflict string) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO alert_thresholds (
			id, overvoltage, undervoltage, overcurrent, high_power, device_offline_seconds, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) ` + onConflict)

	_, err := r.db.DB.ExecContext(ctx, query,
		t.Overvoltage,
		t.Undervoltage,
		t.Overcurrent,
		t.HighPower,
		t.DeviceOfflineSeconds,
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to write thresholds: %w", err)
	}

	return nil
}
