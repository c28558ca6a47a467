package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/nao1215/pageaudit/internal/artifact"
	"github.com/nao1215/pageaudit/internal/model"
)

// Stdout is the destination name that makes Flush write to standard output.
const Stdout = "-"

// Aggregator accumulates the records of one suite run in visit order and
// writes them out once. It is not safe for concurrent use; each suite run
// owns its own Aggregator.
type Aggregator struct {
	suite     string
	label     string
	runID     string
	startedAt time.Time
	now       func() time.Time
	stdout    io.Writer

	records []model.PageAuditRecord
	skipped []model.PageTarget
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLabel sets the display label used in report titles.
func WithLabel(label string) AggregatorOption {
	return func(a *Aggregator) { a.label = label }
}

// WithRunID sets the identifier of the run.
func WithRunID(id string) AggregatorOption {
	return func(a *Aggregator) { a.runID = id }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

// WithStdout replaces the writer used for the "-" destination.
func WithStdout(w io.Writer) AggregatorOption {
	return func(a *Aggregator) { a.stdout = w }
}

// NewAggregator returns an empty aggregator for suite.
func NewAggregator(suite string, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		suite:  suite,
		now:    time.Now,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.startedAt = a.now()
	return a
}

// Record appends entry. Entries are kept in call order; duplicates are kept.
// The aggregator stores its own copy, so later changes to entry's slices do
// not affect recorded data.
func (a *Aggregator) Record(entry model.PageAuditRecord) {
	a.records = append(a.records, entry.Clone())
}

// Skip notes a page that was left out of the report.
func (a *Aggregator) Skip(target model.PageTarget) {
	a.skipped = append(a.skipped, target)
}

// Len returns the number of recorded entries.
func (a *Aggregator) Len() int {
	return len(a.records)
}

// Records returns a copy of the recorded entries in insertion order.
func (a *Aggregator) Records() []model.PageAuditRecord {
	out := make([]model.PageAuditRecord, len(a.records))
	for i, r := range a.records {
		out[i] = r.Clone()
	}
	return out
}

// Skipped returns the pages left out of the report.
func (a *Aggregator) Skipped() []model.PageTarget {
	return slices.Clone(a.skipped)
}

// Report snapshots the run. FinishedAt is the time of the call.
func (a *Aggregator) Report() *model.AuditReport {
	return &model.AuditReport{
		Suite:      a.suite,
		RunID:      a.runID,
		StartedAt:  a.startedAt,
		FinishedAt: a.now(),
		Records:    a.Records(),
		Skipped:    a.Skipped(),
	}
}

// WriteTo serializes the run in format to w. Screenshot paths are left as
// recorded.
func (a *Aggregator) WriteTo(format Format, w io.Writer) (int, error) {
	writer, err := newWriter(format, w, a.label, "")
	if err != nil {
		return 0, err
	}
	return writer.Write(a.Report())
}

// Flush writes the run in format to destination. Missing parent directories
// are created and an existing file is replaced. Stdout ("-") writes to
// standard output. Failures are returned and not retried.
func (a *Aggregator) Flush(format Format, destination string) error {
	if destination == Stdout {
		if _, err := a.WriteTo(format, a.stdout); err != nil {
			return fmt.Errorf("failed to write %s report to stdout: %w", format, err)
		}
		return nil
	}

	if err := artifact.EnsureParent(destination); err != nil {
		return err
	}

	f, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, artifact.FilePerm) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	writer, err := newWriter(format, f, a.label, filepath.Dir(destination))
	if err != nil {
		_ = f.Close()
		return err
	}
	if _, err := writer.Write(a.Report()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s report to %s: %w", format, destination, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file %s: %w", destination, err)
	}
	return nil
}

// FlushResourceCSVs writes one name,duration,initiatorType file per
// recorded page into dir and returns the written paths.
func (a *Aggregator) FlushResourceCSVs(dir string) ([]string, error) {
	if err := artifact.EnsureDir(dir); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(a.records))
	for i, rec := range a.records {
		path := artifact.ResourceCSVPath(dir, a.suite, i+1, rec.Title)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, artifact.FilePerm) //nolint:gosec // Path is derived from the output directory
		if err != nil {
			return paths, fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := WriteResourceCSV(f, rec.TopResources); err != nil {
			_ = f.Close()
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return paths, fmt.Errorf("failed to close %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
