package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/nao1215/pageaudit/internal/model"
	"github.com/nao1215/pageaudit/internal/pipeline"
)

// progressPrinter writes one line per page event. Suites running side by
// side share it, so writes are serialized.
type progressPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	pass  *color.Color
	fail  *color.Color
	warn  *color.Color
	muted *color.Color
}

// newProgressPrinter colors output only when w is a terminal.
func newProgressPrinter(w io.Writer) *progressPrinter {
	p := &progressPrinter{
		w:     w,
		pass:  color.New(color.FgGreen),
		fail:  color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow),
		muted: color.New(color.Faint),
	}
	if !isTerminal(w) {
		for _, c := range []*color.Color{p.pass, p.fail, p.warn, p.muted} {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // File descriptors fit in int
}

// Event prints e.
func (p *progressPrinter) Event(e pipeline.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix := fmt.Sprintf("[%s %d/%d]", e.Suite, e.Index+1, e.Total)
	switch e.Kind {
	case pipeline.EventStarted:
		p.muted.Fprintf(p.w, "%s auditing %s\n", prefix, e.Target)
	case pipeline.EventWaiting:
		p.muted.Fprintf(p.w, "%s waiting %s before the next page\n", prefix, e.Delay)
	case pipeline.EventSkipped:
		p.warn.Fprintf(p.w, "%s ⚠ skipped %s: CAPTCHA did not clear\n", prefix, e.Target.Title)
	case pipeline.EventRecorded:
		p.record(prefix, e.Record)
	}
}

func (p *progressPrinter) record(prefix string, rec *model.PageAuditRecord) {
	if rec == nil {
		return
	}
	if rec.Status == model.StatusPassed {
		p.pass.Fprintf(p.w, "%s ✅ %s loaded in %.1f ms\n", prefix, rec.Title, rec.LoadTimeMs)
		return
	}
	p.fail.Fprintf(p.w, "%s ❌ %s failed\n", prefix, rec.Title)
	if rec.Error != "" {
		fmt.Fprintf(p.w, "    %s\n", rec.Error)
	}
	for _, c := range rec.FailedChecks() {
		fmt.Fprintf(p.w, "    %s: %s\n", c.Name, c.Detail)
	}
}

// Summary prints the outcome of one suite.
func (p *progressPrinter) Summary(s model.RunSummary, dest string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := p.pass
	switch {
	case s.Failed > 0:
		c = p.fail
	case s.Skipped > 0:
		c = p.warn
	}
	c.Fprintf(p.w, "%s: %d recorded, %d failed, %d skipped in %s\n",
		s.Suite, s.Recorded, s.Failed, s.Skipped, s.Duration().Round(1e6))
	if dest != "" {
		fmt.Fprintf(p.w, "  report: %s\n", dest)
	}
}
