package export

import (
	"fmt"

	"medaudit/internal/domain"
	"medaudit/internal/port"
)

// Registry looks up report writers by format.
type Registry struct {
	writers map[domain.ReportFormat]port.ReportWriter
}

// NewRegistry creates a Registry holding the given writers.
func NewRegistry(writers ...port.ReportWriter) *Registry {
	r := &Registry{writers: make(map[domain.ReportFormat]port.ReportWriter, len(writers))}
	for _, w := range writers {
		r.writers[w.Format()] = w
	}
	return r
}

// DefaultRegistry returns a Registry with the CSV and XLSX writers.
func DefaultRegistry() *Registry {
	return NewRegistry(NewCSVWriter(), NewXLSXWriter())
}

// Get returns the writer for format. An empty format selects CSV.
func (r *Registry) Get(format domain.ReportFormat) (port.ReportWriter, error) {
	if format == "" {
		format = domain.ReportFormatCSV
	}
	w, ok := r.writers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	return w, nil
}
