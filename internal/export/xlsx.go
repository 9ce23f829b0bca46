package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"medaudit/internal/domain"
	"medaudit/internal/port"
)

const (
	findingsSheet = "Findings"
	summarySheet  = "Summary"
)

// XLSXWriter implements port.ReportWriter for Excel workbooks.
type XLSXWriter struct{}

// NewXLSXWriter creates an XLSX report writer.
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{}
}

func (w *XLSXWriter) Format() domain.ReportFormat {
	return domain.ReportFormatXLSX
}

// Write produces a workbook with a Findings sheet and a Summary sheet holding
// the per-severity tally.
func (w *XLSXWriter) Write(out io.Writer, documentName string, outcome *domain.AuditOutcome) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet rather than leaving an empty "Sheet1".
	if err := f.SetSheetName(f.GetSheetName(0), findingsSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(findingsSheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(findingsSheet, 1, 1, style)
	}

	for r, row := range reportRows(documentName, outcome) {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(findingsSheet, cell, v)
		}
	}

	_ = f.SetColWidth(findingsSheet, "A", "A", 28) // document
	_ = f.SetColWidth(findingsSheet, "B", "C", 10) // id, severity
	_ = f.SetColWidth(findingsSheet, "D", "D", 22) // category
	_ = f.SetColWidth(findingsSheet, "E", "G", 60) // text

	writeSummary(f, documentName, outcome)

	idx, _ := f.GetSheetIndex(findingsSheet)
	f.SetActiveSheet(idx)

	if err := f.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, documentName string, outcome *domain.AuditOutcome) {
	var tally domain.Tally
	status, message := "", ""
	if outcome != nil {
		tally = outcome.Tally()
		message = escapeCell(summaryText(outcome))
		status = "Completed"
		if !outcome.Success {
			status = "Failed"
		}
	}

	rows := [][]any{
		{"Document", escapeCell(documentName)},
		{"Status", status},
		{"Message", message},
		{"Passed", tally.Passed},
		{"Warnings", tally.Warnings},
		{"Issues", tally.Failed},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = f.SetSheetRow(summarySheet, cell, &row)
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 14)
	_ = f.SetColWidth(summarySheet, "B", "B", 60)
}

// Compile-time check.
var _ port.ReportWriter = (*XLSXWriter)(nil)
