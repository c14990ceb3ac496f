package report

import (
	"bytes"
	"testing"
	"time"

	"EnergyMonitorAPI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuildStatementPDF(t *testing.T) {
	loc := "Kitchen"
	device := &models.Device{ID: "6f1c1f0e-2d7b-4c8e-9a4e-0c2b7d1e5a10", Name: "Main panel", Location: &loc}
	snap := &models.BillingSnapshot{
		DeviceID:      device.ID,
		Period:        "2026-02",
		PeriodStart:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Readings:      480,
		TotalKwh:      42.5,
		RatePerKwh:    12.5,
		EstimatedCost: 531.25,
	}

	data, err := BuildStatementPDF(device, snap, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestBuildStatementPDFWithoutConsumption(t *testing.T) {
	device := &models.Device{ID: "dev", Name: "Idle"}
	snap := &models.BillingSnapshot{
		Period:      "2026-01",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := BuildStatementPDF(device, snap, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestBuildReadingsXLSX(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	readings := []models.Reading{
		{ID: 1, DeviceID: "dev-a", Voltage: 230, Current: 5, Power: 1150, Energy: 12.5, Frequency: 60, PowerFactor: 0.95, RecordedAt: at, ReceivedAt: at},
		{ID: 2, DeviceID: "dev-a", Voltage: 265, Current: 5, Power: 1325, Energy: 12.6, Frequency: 60, PowerFactor: 0.95, RecordedAt: at.Add(time.Minute), ReceivedAt: at.Add(time.Minute)},
	}

	data, err := BuildReadingsXLSX(readings)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(readingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Reading ID", rows[0][0])
	assert.Equal(t, "dev-a", rows[1][1])
	assert.Equal(t, "2026-03-15T10:01:00Z", rows[2][2])
	assert.Equal(t, "265", rows[2][4])
}
