// Package export renders audit outcomes as downloadable reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"medaudit/internal/domain"
	"medaudit/internal/port"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the report header row.
var columns = []string{
	"Document Name",
	"ID",
	"Severity",
	"Category",
	"Statement",
	"Evidence",
	"Recommendation",
}

// CSVWriter implements port.ReportWriter for CSV.
type CSVWriter struct{}

// NewCSVWriter creates a CSV report writer.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

func (w *CSVWriter) Format() domain.ReportFormat {
	return domain.ReportFormatCSV
}

// Write emits the BOM, the header row and one row per finding. Outcomes
// without findings still produce the header followed by a summary row.
func (w *CSVWriter) Write(out io.Writer, documentName string, outcome *domain.AuditOutcome) error {
	if _, err := out.Write(BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, row := range reportRows(documentName, outcome) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// reportRows converts an outcome to rows matching columns.
func reportRows(documentName string, outcome *domain.AuditOutcome) [][]string {
	if outcome == nil {
		return nil
	}
	if len(outcome.Findings) == 0 {
		return [][]string{{escapeCell(documentName), "", "", "", escapeCell(summaryText(outcome)), "", ""}}
	}

	rows := make([][]string, 0, len(outcome.Findings))
	for i := range outcome.Findings {
		f := &outcome.Findings[i]
		rows = append(rows, []string{
			escapeCell(documentName),
			f.ID,
			string(f.Severity),
			escapeCell(f.Category),
			escapeCell(f.Statement),
			escapeCell(f.Evidence),
			escapeCell(f.Recommendation),
		})
	}
	return rows
}

// escapeCell prefixes text that a spreadsheet would evaluate as a formula
// with a single quote.
func escapeCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func summaryText(outcome *domain.AuditOutcome) string {
	if !outcome.Success {
		return outcome.Error
	}
	return outcome.Message
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a document name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "audit"
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition header.
// Format: {sanitized_document_name}_audit_{YYYY-MM-DD}.{format}
func BuildFilename(documentName string, format domain.ReportFormat, now time.Time) string {
	base := strings.TrimSuffix(documentName, ".pdf")
	return fmt.Sprintf("%s_audit_%s.%s", SanitizeFilename(base), now.Format("2006-01-02"), format)
}

// Compile-time check.
var _ port.ReportWriter = (*CSVWriter)(nil)
