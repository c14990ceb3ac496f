package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"EnergyMonitorAPI/internal/database"
	"EnergyMonitorAPI/internal/models"
)

// MaxReportRows caps every multi-row reading query.
const MaxReportRows = 2000

type ReadingRepository struct {
	db *database.Database
}

func NewReadingRepository(db *database.Database) *ReadingRepository {
	return &ReadingRepository{db: db}
}

const readingColumns = `id, device_id, voltage, current_a, power_w, energy_kwh, frequency, power_factor, recorded_at, received_at`

// ReportFilter narrows a reading report. Zero values mean "no bound".
type ReportFilter struct {
	DeviceID string
	From     time.Time
	To       time.Time
	Limit    int
}

// EnergySpan is the first and last cumulative energy counter in a window.
type EnergySpan struct {
	First float64
	Last  float64
	Count int
}

// Append writes one reading and sets its ID. Readings are never changed afterwards.
func (r *ReadingRepository) Append(ctx context.Context, reading *models.Reading) error {
	if reading.ReceivedAt.IsZero() {
		reading.ReceivedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO readings (
			device_id, voltage, current_a, power_w, energy_kwh,
			frequency, power_factor, recorded_at, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.DB.QueryRowContext(ctx, query,
		reading.DeviceID,
		reading.Voltage,
		reading.Current,
		reading.Power,
		reading.Energy,
		reading.Frequency,
		reading.PowerFactor,
		reading.RecordedAt.UTC(),
		reading.ReceivedAt.UTC(),
	).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	return nil
}

// Latest returns the most recently recorded reading for a device.
func (r *ReadingRepository) Latest(ctx context.Context, deviceID string) (*models.Reading, error) {
	query := r.db.Rebind(`
		SELECT ` + readingColumns + `
		FROM readings
		WHERE device_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`)

	reading, err := scanReading(r.db.DB.QueryRowContext(ctx, query, deviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReadingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	return reading, nil
}

// Range returns a device's readings with from <= recorded_at <= to, oldest first.
func (r *ReadingRepository) Range(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]models.Reading, error) {
	return r.Report(ctx, ReportFilter{
		DeviceID: deviceID,
		From:     from,
		To:       to,
		Limit:    limit,
	})
}

// Report returns readings matching the filter, oldest first, capped at MaxReportRows.
func (r *ReadingRepository) Report(ctx context.Context, filter ReportFilter) ([]models.Reading, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, filter.To.UTC())
	}

	limit := filter.Limit
	if limit <= 0 || limit > MaxReportRows {
		limit = MaxReportRows
	}

	query := `SELECT ` + readingColumns + ` FROM readings`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY recorded_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.DB.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, *reading)
	}

	return readings, rows.Err()
}

// EnergySpan reads the first and last energy counters recorded in [from, to).
func (r *ReadingRepository) EnergySpan(ctx context.Context, deviceID string, from, to time.Time) (*EnergySpan, error) {
	span := &EnergySpan{}
	args := []interface{}{deviceID, from.UTC(), to.UTC()}

	countQuery := r.db.Rebind(`
		SELECT COUNT(*) FROM readings
		WHERE device_id = ? AND recorded_at >= ? AND recorded_at < ?
	`)
	if err := r.db.DB.QueryRowContext(ctx, countQuery, args...).Scan(&span.Count); err != nil {
		return nil, fmt.Errorf("failed to count readings in window: %w", err)
	}
	if span.Count == 0 {
		return span, nil
	}

	edge := func(order string) (float64, error) {
		query := r.db.Rebind(`
			SELECT energy_kwh FROM readings
			WHERE device_id = ? AND recorded_at >= ? AND recorded_at < ?
			ORDER BY recorded_at ` + order + `, id ` + order + `
			LIMIT 1
		`)
		var energy float64
		err := r.db.DB.QueryRowContext(ctx, query, args...).Scan(&energy)
		return energy, err
	}

	var err error
	if span.First, err = edge("ASC"); err != nil {
		return nil, fmt.Errorf("failed to read first energy counter: %w", err)
	}
	if span.Last, err = edge("DESC"); err != nil {
		return nil, fmt.Errorf("failed to read last energy counter: %w", err)
	}

	return span, nil
}

func (r *ReadingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return count, nil
}

func scanReading(row scanner) (*models.Reading, error) {
	var reading models.Reading

	err := row.Scan(
		&reading.ID,
		&reading.DeviceID,
		&reading.Voltage,
		&reading.Current,
		&reading.Power,
		&reading.Energy,
		&reading.Frequency,
		&reading.PowerFactor,
		&reading.RecordedAt,
		&reading.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}

	reading.RecordedAt = reading.RecordedAt.UTC()
	reading.ReceivedAt = reading.ReceivedAt.UTC()

	return &reading, nil
}
