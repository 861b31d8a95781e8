// Package reports renders operational spreadsheets.
package reports

import (
	"io"

	"github.com/mmdatafocus/brokerage_backend/workflow"
	"github.com/xuri/excelize/v2"
)

const (
	ExpirySheet  = "Expiry"
	SummarySheet = "Summary"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var expiryHeadings = []interface{}{"Policy Number", "Policy ID", "Client ID", "End Date", "Previous Status", "Expired"}

// ContentType is the MIME type of the workbooks produced here.
func ContentType() string {
	return xlsxContentType
}

// ExpiryWorkbook lays out an expiry sweep as two sheets: one row per
// candidate policy and a summary of the run.
func ExpiryWorkbook(report *workflow.ExpiryReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ExpirySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(ExpirySheet, "A1", &expiryHeadings); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(ExpirySheet, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, c := range report.Candidates {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			c.PolicyNumber,
			c.PolicyId,
			c.ClientId,
			c.EndDate.Format("2006-01-02"),
			previousStatus(string(c.PreviousStatus)),
			yesNo(c.Expired),
		}
		if err := f.SetSheetRow(ExpirySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(ExpirySheet, "A", "F", 18); err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"As Of", report.AsOf.Format("2006-01-02 15:04:05")},
		{"Dry Run", yesNo(report.DryRun)},
		{"Candidates", len(report.Candidates)},
		{"Expired", report.Expired},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColStyle(SummarySheet, "A", bold); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteExpiryWorkbook streams the workbook to w.
func WriteExpiryWorkbook(w io.Writer, report *workflow.ExpiryReport) error {
	f, err := ExpiryWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveExpiryWorkbook writes the workbook to path.
func SaveExpiryWorkbook(path string, report *workflow.ExpiryReport) error {
	f, err := ExpiryWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func previousStatus(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
