package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medaudit/internal/domain"
	"medaudit/internal/service"
	"medaudit/mocks"
)

const maxFileBytes = 10 * 1024 * 1024

func pdfContent() []byte {
	return []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer\n%%EOF")
}

type sessionDeps struct {
	extractor  *mocks.MockTextExtractor
	submitter  *mocks.MockAuditSubmitter
	normalizer *mocks.MockReplyNormalizer
}

func newSession(submitAsText bool) (service.AuditSession, sessionDeps) {
	deps := sessionDeps{
		extractor:  new(mocks.MockTextExtractor),
		submitter:  new(mocks.MockAuditSubmitter),
		normalizer: new(mocks.MockReplyNormalizer),
	}
	s := service.NewAuditSession("sess-1", service.Pipeline{
		Extractor:  deps.extractor,
		Submitter:  deps.submitter,
		Normalizer: deps.normalizer,
	}, service.SessionConfig{
		MaxFileBytes: maxFileBytes,
		SubmitAsText: submitAsText,
		Source:       "test-source",
	})
	return s, deps
}

func completedOutcome() domain.AuditOutcome {
	return domain.AuditOutcome{
		Success: true,
		Message: "Analysis completed successfully",
		Findings: []domain.AuditFinding{
			{ID: "1", Severity: domain.SeverityPass, Category: "HIPAA.", Statement: "HIPAA.1 Privacy"},
			{ID: "2", Severity: domain.SeverityFail, Category: "General", Statement: "Missing signature"},
		},
	}
}

func TestAuditSession_SubmitBinary_Completed(t *testing.T) {
	s, deps := newSession(false)
	reply := &domain.RawEndpointReply{Body: []byte(`{"results":[]}`), StatusCode: 200}

	deps.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(req domain.SubmissionRequest) bool {
		return req.Document.IsBinary() &&
			req.Name == "scan.pdf" &&
			req.Source == "test-source" &&
			!req.SubmittedAt.IsZero() &&
			bytes.Equal(req.Document.Bytes, pdfContent())
	})).Return(reply, nil)
	deps.normalizer.On("Normalize", reply).Return(completedOutcome())

	out, err := s.Submit(context.Background(), service.SubmitInput{
		Name:        "scan.pdf",
		ContentType: "application/pdf",
		Bytes:       pdfContent(),
	})

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Len(t, out.Findings, 2)

	snap := s.Snapshot()
	assert.Equal(t, domain.SessionStateCompleted, snap.State)
	assert.Equal(t, "scan.pdf", snap.DocumentName)
	require.NotNil(t, snap.Tally)
	assert.Equal(t, domain.Tally{Passed: 1, Failed: 1}, *snap.Tally)
	assert.NotNil(t, snap.StartedAt)
	assert.NotNil(t, snap.FinishedAt)
	deps.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	deps.submitter.AssertExpectations(t)
}

func TestAuditSession_SubmitAsText_ExtractsFirst(t *testing.T) {
	s, deps := newSession(true)
	reply := &domain.RawEndpointReply{Body: []byte("ok")}

	deps.extractor.On("Extract", mock.Anything, pdfContent()).Return("page one\n\npage two", nil)
	deps.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(req domain.SubmissionRequest) bool {
		return !req.Document.IsBinary() && req.Document.Text == "page one\n\npage two"
	})).Return(reply, nil)
	deps.normalizer.On("Normalize", reply).Return(domain.AuditOutcome{Success: true, Findings: []domain.AuditFinding{}, Message: "done"})

	out, err := s.Submit(context.Background(), service.SubmitInput{
		Name:        "scan.pdf",
		ContentType: "application/pdf",
		Bytes:       pdfContent(),
	})

	require.NoError(t, err)
	assert.Empty(t, out.Findings)
	assert.Equal(t, domain.SessionStateCompleted, s.Snapshot().State)
	deps.extractor.AssertExpectations(t)
}

func TestAuditSession_SubmitText(t *testing.T) {
	s, deps := newSession(false)
	reply := &domain.RawEndpointReply{}

	deps.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(req domain.SubmissionRequest) bool {
		return req.Document.Kind == domain.DocumentKindText && req.Name == "report.txt"
	})).Return(reply, nil)
	deps.normalizer.On("Normalize", reply).Return(domain.AuditOutcome{Success: true, Findings: []domain.AuditFinding{}, Message: "No output received"})

	out, err := s.Submit(context.Background(), service.SubmitInput{Text: "Patient presented with..."})

	require.NoError(t, err)
	assert.Equal(t, "No output received", out.Message)
}

func TestAuditSession_ExtractionError_Failed(t *testing.T) {
	s, deps := newSession(true)
	deps.extractor.On("Extract", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: no extractable text", domain.ErrExtraction))

	_, err := s.Submit(context.Background(), service.SubmitInput{
		Name: "image.pdf", ContentType: "application/pdf", Bytes: pdfContent(),
	})

	assert.ErrorIs(t, err, domain.ErrExtraction)
	snap := s.Snapshot()
	assert.Equal(t, domain.SessionStateFailed, snap.State)
	assert.Contains(t, snap.Error, "no extractable text")
	require.NotNil(t, snap.Outcome)
	assert.False(t, snap.Outcome.Success)
	deps.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestAuditSession_Timeout_Failed(t *testing.T) {
	s, deps := newSession(false)
	deps.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: no response within 5m0s", domain.ErrTimeout))

	_, err := s.Submit(context.Background(), service.SubmitInput{
		Name: "big.pdf", ContentType: "application/pdf", Bytes: pdfContent(),
	})

	assert.ErrorIs(t, err, domain.ErrTimeout)
	snap := s.Snapshot()
	assert.Equal(t, domain.SessionStateFailed, snap.State)
	assert.Contains(t, snap.Error, "try a smaller file")
	deps.normalizer.AssertNotCalled(t, "Normalize", mock.Anything)
}

func TestAuditSession_EndpointError_Failed(t *testing.T) {
	s, deps := newSession(false)
	deps.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(nil, &domain.EndpointError{StatusCode: 502})

	_, err := s.Submit(context.Background(), service.SubmitInput{
		Name: "a.pdf", ContentType: "application/pdf", Bytes: pdfContent(),
	})

	var epErr *domain.EndpointError
	require.ErrorAs(t, err, &epErr)
	assert.Equal(t, 502, epErr.StatusCode)
	assert.Contains(t, s.Snapshot().Error, "502")
}

func TestAuditSession_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   service.SubmitInput
		wantErr error
	}{
		{
			name:    "declared non-pdf",
			input:   service.SubmitInput{Name: "a.png", ContentType: "image/png", Bytes: pdfContent()},
			wantErr: domain.ErrUnsupportedMediaType,
		},
		{
			name:    "pdf declared but not a pdf",
			input:   service.SubmitInput{Name: "a.pdf", ContentType: "application/pdf", Bytes: []byte("hello world")},
			wantErr: domain.ErrUnsupportedMediaType,
		},
		{
			name:    "empty bytes",
			input:   service.SubmitInput{Name: "a.pdf", ContentType: "application/pdf", Bytes: []byte{}},
			wantErr: domain.ErrEmptyDocument,
		},
		{
			name:    "blank text",
			input:   service.SubmitInput{Text: "   \n"},
			wantErr: domain.ErrEmptyDocument,
		},
		{
			name: "too large",
			input: service.SubmitInput{
				Name:        "big.pdf",
				ContentType: "application/pdf",
				Bytes:       append(pdfContent(), make([]byte, 11*1024*1024)...),
			},
			wantErr: domain.ErrPayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, deps := newSession(false)

			_, err := s.Submit(context.Background(), tt.input)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.SessionStateFailed, s.Snapshot().State)
			deps.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}
}

func TestAuditSession_ContentTypeParamsAccepted(t *testing.T) {
	s, deps := newSession(false)
	reply := &domain.RawEndpointReply{}
	deps.submitter.On("Submit", mock.Anything, mock.Anything).Return(reply, nil)
	deps.normalizer.On("Normalize", reply).Return(completedOutcome())

	_, err := s.Submit(context.Background(), service.SubmitInput{
		Name: "a.pdf", ContentType: "Application/PDF; name=a.pdf", Bytes: pdfContent(),
	})
	assert.NoError(t, err)
}

func TestAuditSession_RejectsConcurrentSubmission(t *testing.T) {
	s, deps := newSession(false)
	reply := &domain.RawEndpointReply{}

	started := make(chan struct{})
	release := make(chan struct{})
	deps.submitter.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(reply, nil).Once()
	deps.normalizer.On("Normalize", reply).Return(completedOutcome())

	input := service.SubmitInput{Name: "a.pdf", ContentType: "application/pdf", Bytes: pdfContent()}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = s.Submit(context.Background(), input)
	}()

	<-started
	assert.Equal(t, domain.SessionStateSubmitting, s.Snapshot().State)

	_, err := s.Submit(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
	assert.ErrorIs(t, s.Reset(), domain.ErrSubmissionInFlight)
	assert.Equal(t, domain.SessionStateSubmitting, s.Snapshot().State)

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, domain.SessionStateCompleted, s.Snapshot().State)
	deps.submitter.AssertNumberOfCalls(t, "Submit", 1)
}

func TestAuditSession_ResubmitAfterFailure(t *testing.T) {
	s, deps := newSession(false)
	reply := &domain.RawEndpointReply{}

	deps.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: connection refused", domain.ErrNetwork)).Once()
	deps.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(reply, nil).Once()
	deps.normalizer.On("Normalize", reply).Return(completedOutcome())

	input := service.SubmitInput{Name: "a.pdf", ContentType: "application/pdf", Bytes: pdfContent()}

	_, err := s.Submit(context.Background(), input)
	require.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, domain.SessionStateFailed, s.Snapshot().State)

	_, err = s.Submit(context.Background(), input)
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, domain.SessionStateCompleted, snap.State)
	assert.Empty(t, snap.Error)
}

func TestAuditSession_CallerCancel_Failed(t *testing.T) {
	s, deps := newSession(false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deps.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: %w", domain.ErrCanceled, context.Canceled))

	_, err := s.Submit(ctx, service.SubmitInput{Name: "a.pdf", ContentType: "application/pdf", Bytes: pdfContent()})

	assert.True(t, errors.Is(err, domain.ErrCanceled))
	assert.Equal(t, domain.SessionStateFailed, s.Snapshot().State)
}

func TestAuditSession_Reset(t *testing.T) {
	s, deps := newSession(false)
	reply := &domain.RawEndpointReply{}
	deps.submitter.On("Submit", mock.Anything, mock.Anything).Return(reply, nil)
	deps.normalizer.On("Normalize", reply).Return(completedOutcome())

	_, err := s.Submit(context.Background(), service.SubmitInput{Name: "a.pdf", ContentType: "application/pdf", Bytes: pdfContent()})
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	snap := s.Snapshot()
	assert.Equal(t, domain.SessionStateIdle, snap.State)
	assert.Nil(t, snap.Outcome)
	assert.Nil(t, snap.Tally)
	assert.Empty(t, snap.DocumentName)
}

func TestAuditSession_SnapshotIsCopy(t *testing.T) {
	s, deps := newSession(false)
	reply := &domain.RawEndpointReply{}
	deps.submitter.On("Submit", mock.Anything, mock.Anything).Return(reply, nil)
	deps.normalizer.On("Normalize", reply).Return(completedOutcome())

	_, err := s.Submit(context.Background(), service.SubmitInput{Name: "a.pdf", ContentType: "application/pdf", Bytes: pdfContent()})
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Outcome.Findings[0].Statement = "mutated"
	assert.Equal(t, "HIPAA.1 Privacy", s.Snapshot().Outcome.Findings[0].Statement)
}

func TestSessionRegistry_GetOrCreate(t *testing.T) {
	reg := service.NewSessionRegistry(service.Pipeline{}, service.SessionConfig{})

	s1, created := reg.GetOrCreate("")
	require.True(t, created)
	assert.NotEmpty(t, s1.ID())

	s2, created := reg.GetOrCreate(s1.ID())
	assert.False(t, created)
	assert.Same(t, s1, s2)

	s3, created := reg.GetOrCreate("not-a-uuid")
	assert.True(t, created)
	assert.NotEqual(t, "not-a-uuid", s3.ID())

	const clientID = "3f1c7c8e-7e3a-4c39-9c55-3d0a3c7f4b2a"
	s4, created := reg.GetOrCreate(clientID)
	assert.True(t, created)
	assert.Equal(t, clientID, s4.ID())

	got, err := reg.Get(clientID)
	require.NoError(t, err)
	assert.Same(t, s4, got)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, 3, reg.Len())
}

func TestSessionRegistry_Sweep(t *testing.T) {
	reg := service.NewSessionRegistry(service.Pipeline{}, service.SessionConfig{})
	reg.GetOrCreate("")
	reg.GetOrCreate("")

	assert.Equal(t, 0, reg.Sweep(time.Hour))
	assert.Equal(t, 2, reg.Len())

	assert.Equal(t, 2, reg.Sweep(-time.Second))
	assert.Equal(t, 0, reg.Len())
}
