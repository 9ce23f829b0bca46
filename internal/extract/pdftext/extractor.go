// Package pdftext extracts plain text from PDF documents with poppler's pdftotext.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"medaudit/internal/domain"
	"medaudit/internal/port"
)

// pageBreak is the separator pdftotext emits between pages.
const pageBreak = "\f"

// paragraphSeparator joins page texts in the extracted document.
const paragraphSeparator = "\n\n"

var pdfMagic = []byte("%PDF-")

// Extractor implements port.TextExtractor on top of pdftotext.
type Extractor struct {
	binary string
	runner Runner
}

// NewExtractor creates an Extractor that runs the given pdftotext binary.
func NewExtractor(binary string) *Extractor {
	return NewExtractorWithRunner(binary, execRunner{})
}

// NewExtractorWithRunner creates an Extractor with a custom command runner (for testing).
func NewExtractorWithRunner(binary string, runner Runner) *Extractor {
	if binary == "" {
		binary = "pdftotext"
	}
	return &Extractor{binary: binary, runner: runner}
}

// CheckAvailable reports whether the pdftotext binary can be found.
func (e *Extractor) CheckAvailable() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("%w: %s not found; install poppler (brew install poppler / apt install poppler-utils)",
			domain.ErrExtraction, e.binary)
	}
	return nil
}

// Extract decodes the PDF page by page and returns the trimmed text with a
// blank line between pages. Whitespace-only output is an error.
func (e *Extractor) Extract(ctx context.Context, pdf []byte) (string, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(pdf, "\x00\t\r\n "), pdfMagic) {
		return "", fmt.Errorf("%w: input is not a PDF document", domain.ErrExtraction)
	}

	tmp, err := os.CreateTemp("", "medaudit-*.pdf")
	if err != nil {
		return "", fmt.Errorf("%w: creating temp file: %v", domain.ErrExtraction, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(pdf); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w: writing temp file: %v", domain.ErrExtraction, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: closing temp file: %v", domain.ErrExtraction, err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix <in.pdf> -
	out, errb, err := e.runner.Run(ctx, e.binary, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s not found; install poppler", domain.ErrExtraction, e.binary)
		}
		detail := strings.TrimSpace(string(errb))
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("%w: pdftotext failed: %s", domain.ErrExtraction, detail)
	}

	text := joinPages(string(out))
	if text == "" {
		return "", fmt.Errorf("%w: no extractable text (the PDF may contain only images)", domain.ErrExtraction)
	}
	return text, nil
}

// joinPages splits pdftotext output on page breaks, keeps pages in order and
// drops pages that carry no text.
func joinPages(raw string) string {
	pages := strings.Split(raw, pageBreak)
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(strings.Join(kept, paragraphSeparator))
}

// Compile-time check.
var _ port.TextExtractor = (*Extractor)(nil)
