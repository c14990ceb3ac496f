package report

import (
	"bytes"
	"fmt"
	"time"

	"EnergyMonitorAPI/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// BuildStatementPDF renders a one-page monthly billing statement.
func BuildStatementPDF(device *models.Device, snap *models.BillingSnapshot, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Energy statement %s", snap.Period), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Energy Statement")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	line := func(label, value string) {
		pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
	}

	line("Device", device.Name)
	line("Device ID", device.ID)
	if device.Location != nil {
		line("Location", *device.Location)
	}
	line("Billing period", fmt.Sprintf("%s (%s to %s)",
		snap.Period,
		snap.PeriodStart.Format("2006-01-02"),
		snap.PeriodEnd.AddDate(0, 0, -1).Format("2006-01-02")))
	line("Generated", generatedAt.UTC().Format(time.RFC3339))
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, "Value", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	rows := [][2]string{
		{"Readings in period", fmt.Sprintf("%d", snap.Readings)},
		{"Energy used (kWh)", fmt.Sprintf("%.3f", snap.TotalKwh)},
		{"Rate per kWh", fmt.Sprintf("%.2f", snap.RatePerKwh)},
	}
	for _, row := range rows {
		pdf.CellFormat(60, 7, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, row[1], "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 7, "Estimated cost", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, fmt.Sprintf("%.2f", snap.EstimatedCost), "1", 1, "R", false, 0, "")

	if snap.Readings < 2 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, "Fewer than two readings were recorded in this period, so no consumption could be measured.", "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement: %w", err)
	}
	return buf.Bytes(), nil
}
