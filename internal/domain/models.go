package domain

import (
	"bytes"
	"time"
)

// Document is the unit of work submitted for audit. It is either a binary blob
// with a declared media type or a plain-text body.
type Document struct {
	Name        string       `json:"name"`
	Kind        DocumentKind `json:"kind"`
	ContentType string       `json:"content_type,omitempty"`
	Bytes       []byte       `json:"-"`
	Text        string       `json:"-"`
}

// NewBinaryDocument copies data so later mutation by the caller cannot reach the document.
func NewBinaryDocument(name, contentType string, data []byte) Document {
	return Document{
		Name:        name,
		Kind:        DocumentKindBinary,
		ContentType: contentType,
		Bytes:       bytes.Clone(data),
	}
}

// NewTextDocument creates a text document.
func NewTextDocument(name, text string) Document {
	return Document{
		Name: name,
		Kind: DocumentKindText,
		Text: text,
	}
}

// Size returns the payload size in bytes.
func (d Document) Size() int64 {
	if d.Kind == DocumentKindText {
		return int64(len(d.Text))
	}
	return int64(len(d.Bytes))
}

// IsBinary reports whether the document carries raw bytes.
func (d Document) IsBinary() bool {
	return d.Kind == DocumentKindBinary
}

// SubmissionRequest is consumed exactly once by the submission client.
type SubmissionRequest struct {
	Document    Document
	Name        string
	SubmittedAt time.Time
	Source      string
}

// RawEndpointReply is the untyped payload returned by the audit endpoint.
type RawEndpointReply struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// AuditFinding is one canonical audit verdict.
type AuditFinding struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Category       string   `json:"category"`
	Statement      string   `json:"statement"`
	Evidence       string   `json:"evidence,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// AuditOutcome is the normalized result handed to the presentation layer.
type AuditOutcome struct {
	Success  bool           `json:"success"`
	Findings []AuditFinding `json:"findings"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	RawText  string         `json:"raw_text,omitempty"`
	// Degraded marks a successful outcome whose reply held no parseable findings.
	Degraded bool `json:"degraded"`
	// Demo marks findings substituted from the demonstration set.
	Demo bool `json:"demo,omitempty"`
}

// FailedOutcome builds an unsuccessful outcome carrying an error description.
func FailedOutcome(description string) AuditOutcome {
	return AuditOutcome{
		Success:  false,
		Findings: []AuditFinding{},
		Error:    description,
	}
}

// Tally counts findings by severity.
type Tally struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Failed   int `json:"failed"`
}

// Tally returns the per-severity counts of the outcome's findings.
func (o AuditOutcome) Tally() Tally {
	var t Tally
	for _, f := range o.Findings {
		switch f.Severity {
		case SeverityPass:
			t.Passed++
		case SeverityFail:
			t.Failed++
		default:
			t.Warnings++
		}
	}
	return t
}

// SessionSnapshot is a point-in-time copy of an audit session's state.
type SessionSnapshot struct {
	ID           string        `json:"id"`
	State        SessionState  `json:"state"`
	DocumentName string        `json:"document_name,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Outcome      *AuditOutcome `json:"outcome,omitempty"`
	Tally        *Tally        `json:"tally,omitempty"`
	Error        string        `json:"error,omitempty"`
}
