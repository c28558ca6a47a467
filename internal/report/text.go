package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/nao1215/pageaudit/internal/model"
)

// TextWriter outputs a terminal-friendly report with one resource table per page.
type TextWriter struct {
	baseWriter

	// title is the report label.
	title string
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithTextTitle sets the report label.
func WithTextTitle(label string) TextWriterOption {
	return func(w *TextWriter) { w.title = label }
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report as plain text.
func (w *TextWriter) Write(report *model.AuditReport) (int, error) {
	cw := &countingWriter{w: w.output}

	title := strings.ToUpper(reportTitle(w.title))
	fmt.Fprintln(cw, strings.Repeat("=", len(title)))
	fmt.Fprintln(cw, title)
	fmt.Fprintln(cw, strings.Repeat("=", len(title)))

	for _, rec := range report.Records {
		fmt.Fprintln(cw)
		fmt.Fprintf(cw, "%s [%s]\n", rec.Title, rec.Status)
		fmt.Fprintf(cw, "  URL:       %s\n", rec.URL)
		fmt.Fprintf(cw, "  Load Time: %s\n", formatMs(rec.LoadTimeMs))
		if rec.Screenshot != "" {
			fmt.Fprintf(cw, "  Screenshot: %s\n", rec.Screenshot)
		}
		if rec.Error != "" {
			fmt.Fprintf(cw, "  Error:     %s\n", rec.Error)
		}
		for _, c := range rec.FailedChecks() {
			fmt.Fprintf(cw, "  FAILED:    %s: %s\n", c.Name, c.Detail)
		}

		if len(rec.TopResources) == 0 {
			fmt.Fprintln(cw, "  No matching resources.")
			continue
		}
		if err := writeResourceTable(cw, rec.TopResources); err != nil {
			return cw.n, err
		}
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintln(cw)
		fmt.Fprintf(cw, "Skipped (CAPTCHA): %d page(s)\n", len(report.Skipped))
		for _, t := range report.Skipped {
			fmt.Fprintf(cw, "  - %s\n", t)
		}
	}
	return cw.n, nil
}

// writeResourceTable renders samples as a table.
func writeResourceTable(w io.Writer, samples []model.ResourceSample) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Resource", "Duration (ms)", "Initiator")
	for i, s := range samples {
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			truncateString(s.Name, 80),
			strconv.FormatFloat(s.Duration, 'f', 1, 64),
			s.InitiatorType,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
