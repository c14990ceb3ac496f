package report

import (
	"bytes"
	"fmt"
	"time"

	"EnergyMonitorAPI/internal/models"

	"github.com/xuri/excelize/v2"
)

const readingsSheet = "readings"

var readingsHeader = []interface{}{
	"Reading ID", "Device ID", "Recorded At", "Received At",
	"Voltage (V)", "Current (A)", "Power (W)", "Energy (kWh)", "Frequency (Hz)", "Power Factor",
}

// BuildReadingsXLSX exports readings as a single-sheet workbook, one row per reading.
func BuildReadingsXLSX(readings []models.Reading) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", readingsSheet); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(readingsSheet, "A1", &readingsHeader); err != nil {
		return nil, err
	}

	for i, r := range readings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			r.ID,
			r.DeviceID,
			r.RecordedAt.UTC().Format(time.RFC3339),
			r.ReceivedAt.UTC().Format(time.RFC3339),
			r.Voltage,
			r.Current,
			r.Power,
			r.Energy,
			r.Frequency,
			r.PowerFactor,
		}
		if err := f.SetSheetRow(readingsSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
