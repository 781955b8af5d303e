package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	status "nowcasting-dashboard/internal/status/domain"
)

// Section is one titled status table.
type Section struct {
	Title string
	Rows  []status.StatusRow
}

var columns = []string{"Source", "Last pulled [UTC]", "Status", "Warning", "Error"}

var statusFill = map[status.FreshnessStatus][3]int{
	status.StatusOK:      {0, 128, 0},
	status.StatusWarning: {255, 165, 0},
	status.StatusError:   {255, 0, 0},
	status.StatusUnknown: {128, 128, 128},
}

// BuildStatusPDF renders the status tables as a PDF.
func BuildStatusPDF(generatedAt time.Time, sections []Section) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Data Pipeline Status")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s [UTC]", generatedAt.UTC().Format(status.TimestampLayout)))
	pdf.Ln(10)

	widths := []float64{45, 45, 25, 35, 35}
	for _, section := range sections {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, section.Title)
		pdf.Ln(7)

		pdf.SetFont("Arial", "B", 10)
		for i, col := range columns {
			pdf.CellFormat(widths[i], 6, col, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 10)
		for _, row := range section.Rows {
			pdf.CellFormat(widths[0], 6, row.SourceName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[1], 6, row.LastUpdated, "1", 0, "C", false, 0, "")
			rgb := statusFill[row.Status]
			pdf.SetFillColor(rgb[0], rgb[1], rgb[2])
			pdf.SetTextColor(255, 255, 255)
			pdf.CellFormat(widths[2], 6, row.Status.String(), "1", 0, "C", true, 0, "")
			pdf.SetTextColor(0, 0, 0)
			pdf.CellFormat(widths[3], 6, row.WarningThreshold, "1", 0, "C", false, 0, "")
			pdf.CellFormat(widths[4], 6, row.ErrorThreshold, "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStatusXLSX renders one sheet per status table.
func BuildStatusXLSX(generatedAt time.Time, sections []Section) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, section := range sections {
		sheet := sheetName(section.Title)
		if first {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, err
			}
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}

		_ = f.SetCellValue(sheet, "A1", section.Title)
		_ = f.SetCellValue(sheet, "A2", "Generated [UTC]")
		_ = f.SetCellValue(sheet, "B2", generatedAt.UTC().Format(status.TimestampLayout))
		for i, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, 4)
			_ = f.SetCellValue(sheet, cell, col)
		}
		for i, row := range section.Rows {
			line := i + 5
			_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", line), row.SourceName)
			_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", line), row.LastUpdated)
			_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", line), row.Status.String())
			_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", line), row.WarningThreshold)
			_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", line), row.ErrorThreshold)
			if style, err := statusStyle(f, row.Status); err == nil {
				_ = f.SetCellStyle(sheet, fmt.Sprintf("C%d", line), fmt.Sprintf("C%d", line), style)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func statusStyle(f *excelize.File, st status.FreshnessStatus) (int, error) {
	rgb := statusFill[st]
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{fmt.Sprintf("%02X%02X%02X", rgb[0], rgb[1], rgb[2])},
		},
		Font: &excelize.Font{Color: "FFFFFF"},
	})
}

func sheetName(title string) string {
	if title == "" {
		return "status"
	}
	if len(title) > 31 {
		return title[:31]
	}
	return title
}
