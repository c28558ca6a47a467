package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pageaudit/internal/model"
)

// JSONWriter outputs the records of a run as a JSON array, the layout of
// performance-metrics-<suite>.json.
type JSONWriter struct {
	baseWriter

	// indent is the per-level indentation. Empty writes compact JSON.
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents nested values by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) { w.indent = "  " }
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs report.Records as a JSON array. An empty run is written as [].
func (w *JSONWriter) Write(report *model.AuditReport) (int, error) {
	records := report.Records
	if records == nil {
		records = []model.PageAuditRecord{}
	}

	cw := &countingWriter{w: w.output}
	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	if w.indent != "" {
		enc.SetIndent("", w.indent)
	}
	err := enc.Encode(records)
	return cw.n, err
}

// ReadJSON parses records previously written by JSONWriter.
func ReadJSON(r io.Reader) ([]model.PageAuditRecord, error) {
	var records []model.PageAuditRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
