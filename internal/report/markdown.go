package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/pageaudit/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter

	// title is the report label, e.g. "CA".
	title string

	// imageBase is the directory screenshot links are relative to.
	imageBase string
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownTitle sets the report label.
func WithMarkdownTitle(label string) MarkdownWriterOption {
	return func(w *MarkdownWriter) { w.title = label }
}

// WithImageBase sets the directory screenshot links are relative to.
func WithImageBase(dir string) MarkdownWriterOption {
	return func(w *MarkdownWriter) { w.imageBase = dir }
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(reportTitle(w.title))
	md.PlainText("")

	w.writeSummary(md, report)
	for _, rec := range report.Records {
		w.writePage(md, rec)
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [pageaudit](https://github.com/nao1215/pageaudit)*")

	return len(md.String()), md.Build()
}

// writeSummary writes the overview table, status chart and skip notice.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Summary")
	md.PlainText("")

	if len(report.Records) == 0 {
		md.PlainText("No pages were recorded.")
		md.PlainText("")
	} else {
		rows := make([][]string, len(report.Records))
		passed, failed := 0, 0
		for i, rec := range report.Records {
			slowest := "-"
			if len(rec.TopResources) > 0 {
				top := rec.TopResources[0]
				slowest = formatMs(top.Duration) + " " + top.InitiatorType
			}
			rows[i] = []string{
				rec.Title,
				statusEmoji(rec.Status),
				formatMs(rec.LoadTimeMs),
				slowest,
			}
			if rec.Status == model.StatusPassed {
				passed++
			} else {
				failed++
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Page", "Status", "Load Time", "Slowest Resource"},
			Rows:   rows,
		})
		md.PlainText("")

		if failed > 0 {
			chart := piechart.NewPieChart(
				io.Discard,
				piechart.WithTitle("Page Status"),
				piechart.WithShowData(true),
			)
			chart.LabelAndIntValue("Passed", uint64(passed))
			chart.LabelAndIntValue("Failed", uint64(failed))
			md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
			md.PlainText("")
			md.Warningf("%d of %d page(s) failed a check.", failed, len(report.Records))
		} else {
			md.Tip("All recorded pages passed their checks.")
		}
		md.PlainText("")
	}

	if len(report.Skipped) > 0 {
		titles := make([]string, len(report.Skipped))
		for i, t := range report.Skipped {
			titles[i] = markdown.Link(t.Title, t.URL)
		}
		md.Importantf("%d page(s) were skipped because a CAPTCHA did not clear.", len(report.Skipped))
		md.PlainText("")
		md.BulletList(titles...)
		md.PlainText("")
	}
}

// writePage writes the section of one record.
func (w *MarkdownWriter) writePage(md *markdown.Markdown, rec model.PageAuditRecord) {
	md.H2(rec.Title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", markdown.Link(rec.URL, rec.URL)},
			{"Load Time", formatMs(rec.LoadTimeMs)},
			{"Status", statusEmoji(rec.Status)},
			{"Audited At", rec.AuditedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")

	if rec.Error != "" {
		md.Caution(rec.Error)
		md.PlainText("")
	}
	for _, c := range rec.FailedChecks() {
		md.Warningf("%s: %s", c.Name, c.Detail)
		md.PlainText("")
	}

	md.H3("Top Resources")
	md.PlainText("")
	if len(rec.TopResources) == 0 {
		md.PlainText("No matching resources.")
	} else {
		rows := make([][]string, len(rec.TopResources))
		for i, s := range rec.TopResources {
			rows[i] = []string{strconv.Itoa(i + 1), markdown.Code(truncateString(s.Name, 80)), formatMs(s.Duration), s.InitiatorType}
		}
		md.Table(markdown.TableSet{
			Header: []string{"#", "Resource", "Duration", "Initiator"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	if rec.Screenshot != "" {
		md.PlainText(markdown.Image("Screenshot of "+rec.Title, relativeAsset(w.imageBase, rec.Screenshot)))
		md.PlainText("")
	}
}

// statusEmoji decorates a status for human-readable output.
func statusEmoji(s model.Status) string {
	if s == model.StatusPassed {
		return "✅ passed"
	}
	return "❌ failed"
}

// formatMs prints a millisecond value with one decimal.
func formatMs(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 1, 64) + " ms"
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
