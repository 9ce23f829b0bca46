// Package submission sends documents to the external audit endpoint.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"medaudit/internal/config"
	"medaudit/internal/domain"
	"medaudit/internal/port"
)

const (
	defaultTimeout      = 5 * time.Minute
	defaultMaxFileBytes = 10 * 1024 * 1024
	defaultMaxReply     = 16 * 1024 * 1024
	maxErrorBodyLen     = 2048

	// timestampLayout matches JavaScript's Date.toISOString output.
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// textPayload is the JSON body used when submitting extracted text.
type textPayload struct {
	Text      string `json:"text"`
	FileName  string `json:"fileName"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// Client implements port.AuditSubmitter over HTTP.
type Client struct {
	endpoint     string
	timeout      time.Duration
	maxFileBytes int64
	maxReply     int64
	authHeader   string
	authToken    string
	client       *http.Client
}

// NewClient creates a submission client from the endpoint config.
func NewClient(cfg *config.EndpointConfig) *Client {
	return NewClientWithHTTPClient(cfg, &http.Client{})
}

// NewClientWithHTTPClient creates a submission client with a custom HTTP client (for testing).
// The deadline is enforced per request through the context, not the client.
func NewClientWithHTTPClient(cfg *config.EndpointConfig, httpClient *http.Client) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxFile := cfg.MaxFileSizeBytes()
	if maxFile <= 0 {
		maxFile = defaultMaxFileBytes
	}
	maxReply := cfg.MaxReplyBytes()
	if maxReply <= 0 {
		maxReply = defaultMaxReply
	}
	return &Client{
		endpoint:     cfg.URL,
		timeout:      timeout,
		maxFileBytes: maxFile,
		maxReply:     maxReply,
		authHeader:   cfg.AuthHeader,
		authToken:    cfg.AuthToken,
		client:       httpClient,
	}
}

// Timeout returns the hard deadline applied to every submission.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func (c *Client) Submit(ctx context.Context, req domain.SubmissionRequest) (*domain.RawEndpointReply, error) {
	doc := req.Document
	if doc.IsBinary() && doc.Size() > c.maxFileBytes {
		return nil, fmt.Errorf("%w (%d bytes, limit %d bytes)", domain.ErrPayloadTooLarge, doc.Size(), c.maxFileBytes)
	}

	name := req.Name
	if name == "" {
		name = doc.Name
	}
	submittedAt := req.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}
	timestamp := submittedAt.UTC().Format(timestampLayout)

	var (
		body        []byte
		contentType string
		err         error
	)
	if doc.IsBinary() {
		body, contentType, err = buildMultipart(doc, name, timestamp, req.Source)
	} else {
		body, err = json.Marshal(textPayload{
			Text:      doc.Text,
			FileName:  name,
			Timestamp: timestamp,
			Source:    req.Source,
		})
		contentType = "application/json"
	}
	if err != nil {
		return nil, fmt.Errorf("building request body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", domain.ErrNetwork, err)
	}
	reqID := uuid.New().String()
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")
	httpReq.Header.Set("X-Request-ID", reqID)
	if c.authHeader != "" && c.authToken != "" {
		httpReq.Header.Set(c.authHeader, c.authToken)
	}

	start := time.Now()
	log.Printf("submission.Client.Submit: [%s] sending %q (%s, %d bytes)", reqID, name, doc.Kind, len(body))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		log.Printf("submission.Client.Submit: [%s] request failed after %s: %v", reqID, time.Since(start), err)
		return nil, c.classify(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// One byte past the limit tells a full reply from a cut-off one.
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, c.maxReply+1))
	oversized := int64(len(respBody)) > c.maxReply
	if oversized {
		respBody = respBody[:c.maxReply]
	}

	log.Printf("submission.Client.Submit: [%s] status %d, %d bytes in %s", reqID, resp.StatusCode, len(respBody), time.Since(start))

	if resp.StatusCode/100 != 2 {
		return nil, &domain.EndpointError{
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(respBody)), maxErrorBodyLen),
		}
	}
	if readErr != nil {
		return nil, c.classify(ctx, readErr)
	}
	if oversized {
		log.Printf("submission.Client.Submit: [%s] reply exceeds %d bytes, discarding", reqID, c.maxReply)
		return nil, fmt.Errorf("%w: reply exceeds %d bytes", domain.ErrEndpoint, c.maxReply)
	}

	return &domain.RawEndpointReply{
		Body:        respBody,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

// classify maps transport failures onto the domain taxonomy.
func (c *Client) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: no response within %s", domain.ErrTimeout, c.timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrCanceled, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: no response within %s", domain.ErrTimeout, c.timeout)
	}
	return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
}

func buildMultipart(doc domain.Document, name, timestamp, source string) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	contentType := doc.ContentType
	if contentType == "" {
		contentType = domain.ContentTypePDF
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(doc.Bytes); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"fileName", name},
		{"timestamp", timestamp},
		{"source", source},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Compile-time check.
var _ port.AuditSubmitter = (*Client)(nil)
