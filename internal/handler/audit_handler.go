package handler

import (
	"bytes"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medaudit/internal/domain"
	"medaudit/internal/export"
	"medaudit/internal/middleware"
	"medaudit/internal/service"
)

// multipartOverhead is the allowance for form fields and boundaries on top of
// the file itself.
const multipartOverhead = 1 << 20

// SubmitTextRequest represents the plain-text submission body.
type SubmitTextRequest struct {
	Text     string `json:"text" binding:"required" example:"Patient presented with acute chest pain..."`
	FileName string `json:"fileName" example:"discharge-summary.txt"`
}

// SubmitResponse is returned for a completed submission.
type SubmitResponse struct {
	SessionID string              `json:"session_id"`
	State     domain.SessionState `json:"state"`
	Outcome   domain.AuditOutcome `json:"outcome"`
	Tally     domain.Tally        `json:"tally"`
}

// AuditHandler handles audit submission and session endpoints.
type AuditHandler struct {
	sessions     service.SessionRegistry
	reports      *export.Registry
	maxFileBytes int64
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(sessions service.SessionRegistry, reports *export.Registry, maxFileBytes int64) *AuditHandler {
	return &AuditHandler{sessions: sessions, reports: reports, maxFileBytes: maxFileBytes}
}

// Submit handles POST /api/v1/audits
// @Summary Submit a medical report for audit
// @Description Upload a PDF (multipart field "file", max 10MB) or JSON {text, fileName}. The session is chosen by X-Session-ID and created when absent.
// @Tags audits
// @Accept multipart/form-data,json
// @Produce json
// @Param X-Session-ID header string false "Audit session ID"
// @Param file formData file false "PDF report"
// @Success 200 {object} APIResponse{data=SubmitResponse} "Audit completed"
// @Failure 400 {object} APIResponse "Missing or empty document"
// @Failure 409 {object} APIResponse "A submission is already in progress"
// @Failure 413 {object} APIResponse "File too large"
// @Failure 415 {object} APIResponse "Not a PDF"
// @Failure 502 {object} APIResponse "Audit service error"
// @Failure 504 {object} APIResponse "Audit service timed out"
// @Security BearerAuth
// @Router /audits [post]
func (h *AuditHandler) Submit(c *gin.Context) {
	session, created := h.sessions.GetOrCreate(c.GetHeader(middleware.HeaderSessionID))
	c.Header(middleware.HeaderSessionID, session.ID())
	if created {
		log.Printf("auditHandler.Submit: created session %s", session.ID())
	}

	input, ok := h.readInput(c)
	if !ok {
		return
	}

	outcome, err := session.Submit(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, SubmitResponse{
		SessionID: session.ID(),
		State:     domain.SessionStateCompleted,
		Outcome:   *outcome,
		Tally:     outcome.Tally(),
	})
}

// readInput decodes either a multipart upload or a JSON text body. It writes
// the error response itself and returns false on failure.
func (h *AuditHandler) readInput(c *gin.Context) (service.SubmitInput, bool) {
	// Bodies up to twice the ceiling reach the session so it can record the
	// failure; anything larger is cut off here.
	if h.maxFileBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*h.maxFileBytes+multipartOverhead)
	}

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))

	if mediaType == "application/json" {
		var req SubmitTextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if isBodyTooLarge(err) {
				HandleError(c, domain.ErrPayloadTooLarge)
				return service.SubmitInput{}, false
			}
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "text field is required")
			return service.SubmitInput{}, false
		}
		return service.SubmitInput{Name: req.FileName, Text: req.Text}, true
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			HandleError(c, domain.ErrPayloadTooLarge)
			return service.SubmitInput{}, false
		}
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return service.SubmitInput{}, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		HandleError(c, err)
		return service.SubmitInput{}, false
	}

	name := header.Filename
	if fn := strings.TrimSpace(c.PostForm("fileName")); fn != "" {
		name = fn
	}

	return service.SubmitInput{
		Name:        name,
		ContentType: declaredContentType(header.Header.Get("Content-Type"), header.Filename),
		Bytes:       data,
	}, true
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// declaredContentType falls back to the file extension when the client sent
// no specific media type.
func declaredContentType(contentType, filename string) string {
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return domain.ContentTypePDF
	}
	return contentType
}

// GetSession handles GET /api/v1/audits/session
// @Summary Get the audit session state
// @Tags audits
// @Produce json
// @Param X-Session-ID header string true "Audit session ID"
// @Success 200 {object} APIResponse{data=domain.SessionSnapshot} "Session snapshot"
// @Failure 404 {object} APIResponse "Session not found"
// @Security BearerAuth
// @Router /audits/session [get]
func (h *AuditHandler) GetSession(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}
	RespondOK(c, session.Snapshot())
}

// ResetSession handles DELETE /api/v1/audits/session
// @Summary Reset the audit session to idle
// @Tags audits
// @Produce json
// @Param X-Session-ID header string true "Audit session ID"
// @Success 200 {object} APIResponse{data=domain.SessionSnapshot} "Session reset"
// @Failure 404 {object} APIResponse "Session not found"
// @Failure 409 {object} APIResponse "A submission is in progress"
// @Security BearerAuth
// @Router /audits/session [delete]
func (h *AuditHandler) ResetSession(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := session.Reset(); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, session.Snapshot())
}

// DownloadReport handles GET /api/v1/audits/session/report
// @Summary Download the last audit outcome as a report
// @Tags audits
// @Produce text/csv,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param X-Session-ID header string true "Audit session ID"
// @Param format query string false "Report format (csv, xlsx)" default(csv)
// @Success 200 {file} file "Report file"
// @Failure 400 {object} APIResponse "Unsupported format"
// @Failure 404 {object} APIResponse "Session or outcome not found"
// @Security BearerAuth
// @Router /audits/session/report [get]
func (h *AuditHandler) DownloadReport(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}

	format := domain.ReportFormat(strings.ToLower(c.DefaultQuery("format", string(domain.ReportFormatCSV))))
	writer, err := h.reports.Get(format)
	if err != nil {
		HandleError(c, err)
		return
	}

	snap := session.Snapshot()
	if snap.Outcome == nil {
		HandleError(c, domain.ErrNoOutcome)
		return
	}

	var buf bytes.Buffer
	if err := writer.Write(&buf, snap.DocumentName, snap.Outcome); err != nil {
		log.Printf("auditHandler.DownloadReport: session %s: %v", snap.ID, err)
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename(snap.DocumentName, writer.Format(), time.Now())
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, domain.AllowedReportFormats[writer.Format()], buf.Bytes())
}

func (h *AuditHandler) lookup(c *gin.Context) (service.AuditSession, bool) {
	id := c.GetHeader(middleware.HeaderSessionID)
	if id == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_SESSION", "X-Session-ID header is required")
		return nil, false
	}
	session, err := h.sessions.Get(id)
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	c.Header(middleware.HeaderSessionID, session.ID())
	return session, true
}
