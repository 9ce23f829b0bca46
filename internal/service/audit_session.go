package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"medaudit/internal/domain"
	"medaudit/internal/metrics"
	"medaudit/internal/port"
)

// SubmitInput is the DTO for one audit submission. Either Bytes (with
// ContentType) or Text is set.
type SubmitInput struct {
	Name        string
	ContentType string
	Bytes       []byte
	Text        string
}

// AuditSession defines the audit session contract: one in-flight submission
// at a time, exposing progress and the terminal outcome.
type AuditSession interface {
	ID() string
	Submit(ctx context.Context, input SubmitInput) (*domain.AuditOutcome, error)
	Snapshot() domain.SessionSnapshot
	Reset() error
}

// SessionConfig holds the submission settings shared by all sessions.
type SessionConfig struct {
	MaxFileBytes int64
	SubmitAsText bool
	Source       string
}

// Pipeline bundles the collaborators a session drives.
type Pipeline struct {
	Extractor  port.TextExtractor
	Submitter  port.AuditSubmitter
	Normalizer port.ReplyNormalizer
	Metrics    *metrics.Metrics
}

type auditSession struct {
	id       string
	pipeline Pipeline
	cfg      SessionConfig
	now      func() time.Time

	// mu guards the fields below. Handlers for the same session may run
	// concurrently; the state machine decides who may submit.
	mu           sync.Mutex
	state        domain.SessionState
	documentName string
	startedAt    time.Time
	finishedAt   time.Time
	outcome      *domain.AuditOutcome
	errMsg       string
	lastActive   time.Time
}

// NewAuditSession creates an idle AuditSession.
func NewAuditSession(id string, pipeline Pipeline, cfg SessionConfig) AuditSession {
	return newAuditSession(id, pipeline, cfg, time.Now)
}

func newAuditSession(id string, pipeline Pipeline, cfg SessionConfig, now func() time.Time) *auditSession {
	return &auditSession{
		id:         id,
		pipeline:   pipeline,
		cfg:        cfg,
		now:        now,
		state:      domain.SessionStateIdle,
		lastActive: now(),
	}
}

func (s *auditSession) ID() string {
	return s.id
}

// Submit validates the document, runs it through extraction (when required),
// submission and normalization, and records the terminal state. Terminal
// pipeline errors are returned after the session has moved to Failed.
func (s *auditSession) Submit(ctx context.Context, input SubmitInput) (*domain.AuditOutcome, error) {
	s.mu.Lock()
	if s.state == domain.SessionStateSubmitting {
		s.mu.Unlock()
		s.pipeline.Metrics.IncrementSubmission("rejected")
		return nil, domain.ErrSubmissionInFlight
	}

	doc, err := s.validate(input)
	if err != nil {
		s.failLocked(input.Name, err)
		s.mu.Unlock()
		log.Printf("service.AuditSession.Submit: session %s rejected document %q: %v", s.id, input.Name, err)
		return nil, err
	}

	s.state = domain.SessionStateSubmitting
	s.documentName = doc.Name
	s.startedAt = s.now()
	s.finishedAt = time.Time{}
	s.outcome = nil
	s.errMsg = ""
	s.lastActive = s.startedAt
	s.mu.Unlock()

	s.pipeline.Metrics.SubmissionStarted()
	outcome, err := s.run(ctx, doc)
	s.pipeline.Metrics.SubmissionFinished()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failLocked(doc.Name, err)
		log.Printf("service.AuditSession.Submit: session %s document %q failed: %v", s.id, doc.Name, err)
		return nil, err
	}

	s.state = domain.SessionStateCompleted
	s.finishedAt = s.now()
	s.lastActive = s.finishedAt
	s.outcome = &outcome
	s.pipeline.Metrics.IncrementSubmission("completed")
	recordFindings(s.pipeline.Metrics, outcome)

	result := outcome
	return &result, nil
}

func (s *auditSession) run(ctx context.Context, doc domain.Document) (domain.AuditOutcome, error) {
	if doc.IsBinary() && s.cfg.SubmitAsText {
		text, err := s.pipeline.Extractor.Extract(ctx, doc.Bytes)
		if err != nil {
			return domain.AuditOutcome{}, err
		}
		doc = domain.NewTextDocument(doc.Name, text)
	}

	req := domain.SubmissionRequest{
		Document:    doc,
		Name:        doc.Name,
		SubmittedAt: s.now().UTC(),
		Source:      s.cfg.Source,
	}

	start := time.Now()
	reply, err := s.pipeline.Submitter.Submit(ctx, req)
	s.pipeline.Metrics.ObserveEndpointLatency(time.Since(start))
	if err != nil {
		return domain.AuditOutcome{}, err
	}

	return s.pipeline.Normalizer.Normalize(reply), nil
}

// validate enforces the inbound document rules: binary documents must be PDFs
// under the size ceiling, text documents must not be blank.
func (s *auditSession) validate(input SubmitInput) (domain.Document, error) {
	name := strings.TrimSpace(input.Name)

	if input.Bytes == nil {
		if strings.TrimSpace(input.Text) == "" {
			return domain.Document{}, domain.ErrEmptyDocument
		}
		if name == "" {
			name = "report.txt"
		}
		return domain.NewTextDocument(name, input.Text), nil
	}

	if len(input.Bytes) == 0 {
		return domain.Document{}, domain.ErrEmptyDocument
	}
	if name == "" {
		name = "report.pdf"
	}

	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(input.ContentType, ";", 2)[0]))
	if _, ok := domain.AllowedContentTypes[declared]; !ok {
		return domain.Document{}, fmt.Errorf("%w: declared %q", domain.ErrUnsupportedMediaType, input.ContentType)
	}

	// Magic-byte detection guards against renamed non-PDF files.
	sniffLen := min(len(input.Bytes), 512)
	if detected := http.DetectContentType(input.Bytes[:sniffLen]); detected != domain.ContentTypePDF {
		return domain.Document{}, fmt.Errorf("%w: detected %q", domain.ErrUnsupportedMediaType, detected)
	}

	if s.cfg.MaxFileBytes > 0 && int64(len(input.Bytes)) > s.cfg.MaxFileBytes {
		return domain.Document{}, fmt.Errorf("%w (%d bytes, limit %d bytes)", domain.ErrPayloadTooLarge, len(input.Bytes), s.cfg.MaxFileBytes)
	}

	return domain.NewBinaryDocument(name, domain.ContentTypePDF, input.Bytes), nil
}

// failLocked moves the session to Failed. s.mu must be held.
func (s *auditSession) failLocked(name string, err error) {
	desc := domain.Describe(err)
	failed := domain.FailedOutcome(desc)

	s.state = domain.SessionStateFailed
	if name != "" {
		s.documentName = name
	}
	s.finishedAt = s.now()
	s.lastActive = s.finishedAt
	s.outcome = &failed
	s.errMsg = desc

	s.pipeline.Metrics.IncrementSubmission("failed")
	s.pipeline.Metrics.IncrementFailure(failureKind(err))
}

func (s *auditSession) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.SessionSnapshot{
		ID:           s.id,
		State:        s.state,
		DocumentName: s.documentName,
		Error:        s.errMsg,
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		snap.StartedAt = &t
	}
	if !s.finishedAt.IsZero() {
		t := s.finishedAt
		snap.FinishedAt = &t
	}
	if s.outcome != nil {
		o := *s.outcome
		o.Findings = append([]domain.AuditFinding(nil), s.outcome.Findings...)
		snap.Outcome = &o
		tally := o.Tally()
		snap.Tally = &tally
	}
	return snap
}

// Reset returns the session to Idle. A session that is submitting cannot be
// reset.
func (s *auditSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.SessionStateSubmitting {
		return domain.ErrSubmissionInFlight
	}
	s.state = domain.SessionStateIdle
	s.documentName = ""
	s.startedAt = time.Time{}
	s.finishedAt = time.Time{}
	s.outcome = nil
	s.errMsg = ""
	s.lastActive = s.now()
	return nil
}

// idleSince reports the last activity time and whether the session may be
// evicted.
func (s *auditSession) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.state != domain.SessionStateSubmitting
}

func recordFindings(m *metrics.Metrics, outcome domain.AuditOutcome) {
	if outcome.Degraded {
		m.IncrementDegraded()
	}
	tally := outcome.Tally()
	m.AddFindings(string(domain.SeverityPass), tally.Passed)
	m.AddFindings(string(domain.SeverityWarning), tally.Warnings)
	m.AddFindings(string(domain.SeverityFail), tally.Failed)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		return "unsupported_media_type"
	case errors.Is(err, domain.ErrEmptyDocument):
		return "empty_document"
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return "too_large"
	case errors.Is(err, domain.ErrExtraction):
		return "extraction"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrEndpoint):
		return "endpoint"
	case errors.Is(err, domain.ErrCanceled):
		return "canceled"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	default:
		return "other"
	}
}
