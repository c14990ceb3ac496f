package service

import (
	"context"
	"testing"
	"time"

	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReadingService(now time.Time) (*ReadingService, *fakeReadings) {
	readings := &fakeReadings{}
	s := NewReadingService(readings, logger.NewNop())
	s.clock = &fakeClock{now: now}
	return s, readings
}

func TestReadingWindowDefaultsToLastDay(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s, readings := newReadingService(now)
	ctx := context.Background()

	for _, at := range []time.Time{now.Add(-30 * time.Hour), now.Add(-2 * time.Hour), now.Add(-time.Minute)} {
		require.NoError(t, readings.Append(ctx, models.NewReading(deviceID, nominalReading(), at, at)))
	}

	got, err := s.Window(ctx, deviceID, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReadingWindowBounds(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s, _ := newReadingService(now)
	ctx := context.Background()

	_, err := s.Window(ctx, deviceID, now, now.Add(-time.Hour), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Window(ctx, deviceID, now.Add(-MaxReadingWindow-time.Second), now, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Window(ctx, deviceID, now.Add(-MaxReadingWindow), now, 0)
	assert.NoError(t, err)
}

func TestReadingLatest(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s, readings := newReadingService(now)
	ctx := context.Background()

	_, err := s.Latest(ctx, deviceID)
	assert.ErrorIs(t, err, repository.ErrReadingNotFound)

	m := nominalReading()
	m.Voltage = 231
	require.NoError(t, readings.Append(ctx, models.NewReading(deviceID, m, now, now)))

	got, err := s.Latest(ctx, deviceID)
	require.NoError(t, err)
	assert.Equal(t, 231.0, got.Voltage)
}

func TestReadingReportRejectsInvertedRange(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s, _ := newReadingService(now)

	_, err := s.Report(context.Background(), repository.ReportFilter{From: now, To: now.Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	rows, err := s.Report(context.Background(), repository.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
