package port

import (
	"io"

	"medaudit/internal/domain"
)

// ReportWriter encodes an audit outcome as a downloadable report.
type ReportWriter interface {
	Format() domain.ReportFormat
	Write(w io.Writer, documentName string, outcome *domain.AuditOutcome) error
}
