package domain

// DocumentKind distinguishes binary uploads from already-extracted text.
type DocumentKind string

const (
	DocumentKindBinary DocumentKind = "binary"
	DocumentKindText   DocumentKind = "text"
)

// ContentTypePDF is the only binary media type accepted for submission.
const ContentTypePDF = "application/pdf"

// AllowedContentTypes maps accepted MIME content types to their file extension.
var AllowedContentTypes = map[string]string{
	ContentTypePDF: "pdf",
}

// Severity classifies a single audit finding.
type Severity string

const (
	SeverityPass    Severity = "pass"
	SeverityWarning Severity = "warning"
	SeverityFail    Severity = "fail"
)

// SessionState is the lifecycle of an audit session.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateSubmitting SessionState = "submitting"
	SessionStateCompleted  SessionState = "completed"
	SessionStateFailed     SessionState = "failed"
)

// ReportFormat is a downloadable report encoding.
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatXLSX ReportFormat = "xlsx"
)

// AllowedReportFormats maps report formats to their MIME content type.
var AllowedReportFormats = map[ReportFormat]string{
	ReportFormatCSV:  "text/csv; charset=utf-8",
	ReportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}
