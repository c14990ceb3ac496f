package repository

import (
	"context"
	"fmt"
	"time"

	"EnergyMonitorAPI/internal/database"
	"EnergyMonitorAPI/internal/models"

	"github.com/google/uuid"
)

// MaxUnreadAlerts caps ListUnread.
const MaxUnreadAlerts = 50

type AlertRepository struct {
	db *database.Database
}

func NewAlertRepository(db *database.Database) *AlertRepository {
	return &AlertRepository{db: db}
}

// Insert stores a new unread alert and assigns its ID and CreatedAt.
func (r *AlertRepository) Insert(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	alert.IsRead = false

	query := r.db.Rebind(`
		INSERT INTO alerts (id, device_id, type, value, threshold, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.DB.ExecContext(ctx, query,
		alert.ID,
		alert.DeviceID,
		string(alert.Type),
		alert.Value,
		alert.Threshold,
		alert.Message,
		alert.IsRead,
		alert.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// ListUnread returns unread alerts newest first. An empty deviceID means all devices.
func (r *AlertRepository) ListUnread(ctx context.Context, deviceID string, limit int) ([]models.Alert, error) {
	if limit <= 0 || limit > MaxUnreadAlerts {
		limit = MaxUnreadAlerts
	}

	query := `
		SELECT id, device_id, type, value, threshold, message, is_read, created_at
		FROM alerts
		WHERE is_read = ?`
	args := []interface{}{false}

	if deviceID != "" {
		query += ` AND device_id = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.DB.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unread alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var (
			a         models.Alert
			alertType string
		)
		if err := rows.Scan(
			&a.ID,
			&a.DeviceID,
			&alertType,
			&a.Value,
			&a.Threshold,
			&a.Message,
			&a.IsRead,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Type = models.AlertType(alertType)
		a.CreatedAt = a.CreatedAt.UTC()
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// MarkRead flips an unread alert to read. Missing and already-read alerts
// both report ErrAlertNotFound.
func (r *AlertRepository) MarkRead(ctx context.Context, id string) error {
	query := r.db.Rebind(`UPDATE alerts SET is_read = ? WHERE id = ? AND is_read = ?`)

	result, err := r.db.DB.ExecContext(ctx, query, true, id, false)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAlertNotFound
	}

	return nil
}

func (r *AlertRepository) CountUnread(ctx context.Context) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM alerts WHERE is_read = ?`)

	var count int
	if err := r.db.DB.QueryRowContext(ctx, query, false).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread alerts: %w", err)
	}

	return count, nil
}
