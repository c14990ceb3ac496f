package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"EnergyMonitorAPI/internal/database"
	"EnergyMonitorAPI/internal/models"

	"github.com/google/uuid"
)

type DeviceRepository struct {
	db *database.Database
}

func NewDeviceRepository(db *database.Database) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, name, location, token_hash, is_active, last_seen_at, created_at`

// Create stores a new device. ID and CreatedAt are filled in when empty.
func (r *DeviceRepository) Create(ctx context.Context, device *models.Device) error {
	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO devices (id, name, location, token_hash, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.DB.ExecContext(ctx, query,
		device.ID,
		device.Name,
		device.Location,
		device.TokenHash,
		device.IsActive,
		device.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateToken
	}
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}

	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	query := r.db.Rebind(`SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`)

	device, err := scanDevice(r.db.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return device, nil
}

// GetByTokenHash resolves a credential. Inactive devices are returned too;
// the caller decides what an inactive device may do.
func (r *DeviceRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Device, error) {
	query := r.db.Rebind(`SELECT ` + deviceColumns + ` FROM devices WHERE token_hash = ?`)

	device, err := scanDevice(r.db.DB.QueryRowContext(ctx, query, tokenHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve device token: %w", err)
	}

	return device, nil
}

// List returns all devices, newest first.
func (r *DeviceRepository) List(ctx context.Context) ([]models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY created_at DESC, id`

	rows, err := r.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *device)
	}

	return devices, rows.Err()
}

// Deactivate is a soft delete; the device's readings and alerts stay.
func (r *DeviceRepository) Deactivate(ctx context.Context, id string) error {
	query := r.db.Rebind(`UPDATE devices SET is_active = ? WHERE id = ?`)

	result, err := r.db.DB.ExecContext(ctx, query, false, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate device: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	query := r.db.Rebind(`UPDATE devices SET last_seen_at = ? WHERE id = ?`)

	if _, err := r.db.DB.ExecContext(ctx, query, at.UTC(), id); err != nil {
		return fmt.Errorf("failed to update device last_seen_at: %w", err)
	}

	return nil
}

func (r *DeviceRepository) CountActive(ctx context.Context) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM devices WHERE is_active = ?`)

	var count int
	if err := r.db.DB.QueryRowContext(ctx, query, true).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active devices: %w", err)
	}

	return count, nil
}

func scanDevice(row scanner) (*models.Device, error) {
	var (
		d        models.Device
		location sql.NullString
		lastSeen sql.NullTime
	)

	err := row.Scan(
		&d.ID,
		&d.Name,
		&location,
		&d.TokenHash,
		&d.IsActive,
		&lastSeen,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if location.Valid {
		d.Location = &location.String
	}
	if lastSeen.Valid {
		t := lastSeen.Time.UTC()
		d.LastSeenAt = &t
	}
	d.CreatedAt = d.CreatedAt.UTC()

	return &d, nil
}
