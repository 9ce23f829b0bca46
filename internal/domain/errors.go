package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrEmptyDocument        = errors.New("document is empty")
	ErrPayloadTooLarge      = errors.New("file exceeds maximum allowed size")
	ErrExtraction           = errors.New("text extraction failed")
	ErrTimeout              = errors.New("audit service timed out")
	ErrEndpoint             = errors.New("audit service returned an error")
	ErrNetwork              = errors.New("failed to connect to audit service")
	ErrCanceled             = errors.New("submission canceled")
	ErrSubmissionInFlight   = errors.New("a submission is already in progress")
	ErrNoOutcome            = errors.New("no audit outcome available")
	ErrSessionNotFound      = errors.New("audit session not found")
	ErrUnsupportedFormat    = errors.New("unsupported report format")
)

// EndpointError indicates the audit endpoint answered with a non-2xx status.
type EndpointError struct {
	StatusCode int
	Body       string
}

func (e *EndpointError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("audit service error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("audit service error (status %d): %s", e.StatusCode, e.Body)
}

func (e *EndpointError) Unwrap() error {
	return ErrEndpoint
}

// Describe returns an actionable, human-readable message for a terminal
// submission error.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var epErr *EndpointError
	switch {
	case errors.Is(err, ErrPayloadTooLarge):
		return err.Error() + "; try a smaller file"
	case errors.Is(err, ErrTimeout):
		return err.Error() + "; try a smaller file or submit again later"
	case errors.Is(err, ErrUnsupportedMediaType):
		return "Please upload a PDF file only"
	case errors.Is(err, ErrEmptyDocument):
		return "the document is empty; select a file with content"
	case errors.Is(err, ErrExtraction):
		return err.Error() + "; the PDF may be scanned or damaged, try submitting the file directly"
	case errors.As(err, &epErr):
		return fmt.Sprintf("audit service rejected the report (HTTP %d); check the document and submit again", epErr.StatusCode)
	case errors.Is(err, ErrEndpoint):
		return err.Error() + "; submit again or contact the service operator"
	case errors.Is(err, ErrNetwork):
		return err.Error() + "; check the connection and submit again"
	case errors.Is(err, ErrCanceled):
		return "the submission was canceled before the audit finished"
	case errors.Is(err, ErrSubmissionInFlight):
		return "an audit is already running for this session; wait for it to finish"
	default:
		return err.Error()
	}
}
