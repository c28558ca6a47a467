package report

import (
	"html/template"
	"io"
	"path/filepath"
	"time"

	"github.com/nao1215/pageaudit/internal/model"
)

// htmlTemplate renders one section per record, in record order.
var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
section.page { border-top: 1px solid #ccc; padding-top: 1rem; margin-top: 1.5rem; }
.status-passed { color: #1a7f37; }
.status-failed { color: #cf222e; }
.error { color: #cf222e; }
.duration { font-variant-numeric: tabular-nums; }
img { max-width: 100%; border: 1px solid #ddd; margin-top: 1rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">{{len .Pages}} page(s){{if .RunID}} &middot; run {{.RunID}}{{end}}{{if .Generated}} &middot; generated {{.Generated}}{{end}}</p>
{{- if .Skipped}}
<p class="skipped">Skipped (CAPTCHA): {{range $i, $t := .Skipped}}{{if $i}}, {{end}}{{$t.Title}}{{end}}</p>
{{- end}}
{{- range .Pages}}
<section class="page">
<h2>{{.Title}}</h2>
<p><strong>URL:</strong> <a href="{{.URL}}">{{.URL}}</a></p>
<p><strong>Load Time:</strong> <span class="duration">{{printf "%.0f" .LoadTimeMs}} ms</span></p>
<p><strong>Status:</strong> <span class="status-{{.Status}}">{{.Status}}</span></p>
{{- if .Error}}
<p class="error">{{.Error}}</p>
{{- end}}
{{- with .FailedChecks}}
<ul class="checks">
{{- range .}}
<li>{{.Name}}: {{.Detail}}</li>
{{- end}}
</ul>
{{- end}}
<h3>Top Resources</h3>
{{- if .TopResources}}
<ol class="resources">
{{- range .TopResources}}
<li><a href="{{.Name}}">{{.Name}}</a> <span class="duration">{{printf "%.1f" .Duration}} ms</span> <span class="initiator">{{.InitiatorType}}</span></li>
{{- end}}
</ol>
{{- else}}
<p>No matching resources.</p>
{{- end}}
{{- if .ScreenshotSrc}}
<img src="{{.ScreenshotSrc}}" alt="Screenshot of {{.Title}}">
{{- end}}
</section>
{{- end}}
</body>
</html>
`))

// HTMLWriter outputs a self-contained HTML document.
type HTMLWriter struct {
	baseWriter

	// title is the report label, e.g. "AU".
	title string

	// assetBase is the directory the document is written to. Screenshot
	// paths are made relative to it. Empty leaves them unchanged.
	assetBase string
}

// HTMLWriterOption configures an HTMLWriter.
type HTMLWriterOption func(*HTMLWriter)

// WithTitle sets the report label.
func WithTitle(label string) HTMLWriterOption {
	return func(w *HTMLWriter) { w.title = label }
}

// WithAssetBase sets the directory screenshot links are relative to.
func WithAssetBase(dir string) HTMLWriterOption {
	return func(w *HTMLWriter) { w.assetBase = dir }
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer, opts ...HTMLWriterOption) *HTMLWriter {
	w := &HTMLWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type htmlPage struct {
	model.PageAuditRecord
	ScreenshotSrc string
}

type htmlDocument struct {
	Title     string
	RunID     string
	Generated string
	Pages     []htmlPage
	Skipped   []model.PageTarget
}

// Write renders the report.
func (w *HTMLWriter) Write(report *model.AuditReport) (int, error) {
	doc := htmlDocument{
		Title:   reportTitle(w.title),
		RunID:   report.RunID,
		Skipped: report.Skipped,
		Pages:   make([]htmlPage, len(report.Records)),
	}
	if !report.FinishedAt.IsZero() {
		doc.Generated = report.FinishedAt.Format(time.RFC1123)
	}
	for i, rec := range report.Records {
		doc.Pages[i] = htmlPage{
			PageAuditRecord: rec,
			ScreenshotSrc:   relativeAsset(w.assetBase, rec.Screenshot),
		}
	}

	cw := &countingWriter{w: w.output}
	err := htmlTemplate.Execute(cw, doc)
	return cw.n, err
}

// relativeAsset returns path relative to base using forward slashes.
// If either is empty or no relative path exists, path is returned as is.
func relativeAsset(base, path string) string {
	if path == "" || base == "" {
		return filepath.ToSlash(path)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return filepath.ToSlash(path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
