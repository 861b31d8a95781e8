package reports

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/workflow"
	"github.com/xuri/excelize/v2"
)

func sampleReport() *workflow.ExpiryReport {
	return &workflow.ExpiryReport{
		AsOf:   time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
		DryRun: false,
		Candidates: []workflow.ExpiryCandidate{
			{PolicyId: 12, PolicyNumber: "POL/2024/00012", ClientId: 4, EndDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Expired: true},
			{PolicyId: 15, PolicyNumber: "POL/2024/00015", ClientId: 9, EndDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), PreviousStatus: models.PolicyStatusPending, Expired: true},
		},
		Expired: 2,
	}
}

func TestWriteExpiryWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExpiryWorkbook(&buf, sampleReport()); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ExpirySheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Policy Number" || rows[0][5] != "Expired" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	want := []string{"POL/2024/00012", "12", "4", "2025-05-01", "(none)", "yes"}
	for i, v := range want {
		if rows[1][i] != v {
			t.Fatalf("row 1 col %d: expected %q, got %q", i, v, rows[1][i])
		}
	}
	if rows[2][4] != "pending" {
		t.Fatalf("expected previous status pending, got %q", rows[2][4])
	}

	summary, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if summary[1][1] != "no" || summary[3][1] != "2" {
		t.Fatalf("unexpected summary %v", summary)
	}
}

func TestSaveExpiryWorkbook_EmptyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expiry.xlsx")
	report := &workflow.ExpiryReport{AsOf: time.Now().UTC(), DryRun: true, Candidates: []workflow.ExpiryCandidate{}}
	if err := SaveExpiryWorkbook(path, report); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open saved workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(ExpirySheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the header row, got %d", len(rows))
	}
}
