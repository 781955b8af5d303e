package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	status "nowcasting-dashboard/internal/status/domain"
)

func sampleSections() []Section {
	return []Section{
		{Title: "Data Consumers", Rows: []status.StatusRow{
			{SourceName: "pv", LastUpdated: "2022-06-01 11:48:00", Status: status.StatusWarning, WarningThreshold: "10 minutes", ErrorThreshold: "20 minutes"},
			{SourceName: "gsp", Status: status.StatusUnknown, WarningThreshold: "30 minutes", ErrorThreshold: "1 day"},
		}},
		{Title: "Forecasts", Rows: []status.StatusRow{
			{SourceName: "forecast national", LastUpdated: "2022-06-01 11:58:00", Status: status.StatusOK, WarningThreshold: "5 minutes", ErrorThreshold: "15 minutes"},
		}},
	}
}

func TestBuildStatusXLSX(t *testing.T) {
	generated := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	data, err := BuildStatusXLSX(generated, sampleSections())
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Data Consumers" || sheets[1] != "Forecasts" {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
	value, err := f.GetCellValue("Data Consumers", "C5")
	if err != nil {
		t.Fatalf("get cell: %v", err)
	}
	if value != "Warning" {
		t.Fatalf("expected Warning, got %q", value)
	}
	value, _ = f.GetCellValue("Data Consumers", "A6")
	if value != "gsp" {
		t.Fatalf("expected gsp, got %q", value)
	}
	value, _ = f.GetCellValue("Forecasts", "B2")
	if value != "2022-06-01 12:00:00" {
		t.Fatalf("unexpected generated cell %q", value)
	}
}

func TestBuildStatusPDF(t *testing.T) {
	data, err := BuildStatusPDF(time.Now(), sampleSections())
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected pdf header, got %q", data[:8])
	}
}
