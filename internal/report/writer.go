package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/pageaudit/internal/model"
)

// Format is a report output format.
type Format string

// Supported formats.
const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat converts a format name, case-insensitively. "md" is accepted
// for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "html":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension for f without a dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return string(f)
	}
}

// Writer defines the interface for report output.
// Implementations serialize a suite run in one format.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.AuditReport) (int, error)
}

// MultiWriter writes the same report to several Writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every Writer and stops on the first error.
func (m *MultiWriter) Write(report *model.AuditReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter counts bytes passed to an underlying writer.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// newWriter returns the Writer for format. label titles the HTML, Markdown
// and text outputs; assetBase is the directory screenshots are linked from.
func newWriter(format Format, w io.Writer, label, assetBase string) (Writer, error) {
	switch format {
	case FormatJSON:
		return NewJSONWriter(w, WithPrettyPrint()), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatHTML:
		return NewHTMLWriter(w, WithTitle(label), WithAssetBase(assetBase)), nil
	case FormatMarkdown:
		return NewMarkdownWriter(w, WithMarkdownTitle(label), WithImageBase(assetBase)), nil
	case FormatText:
		return NewTextWriter(w, WithTextTitle(label)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
}

// reportTitle builds the heading shared by the human-readable formats.
func reportTitle(label string) string {
	if label == "" {
		return "Site Performance Report"
	}
	return label + " Site Performance Report"
}
