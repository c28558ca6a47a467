package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/pageaudit/internal/browser"
	"github.com/nao1215/pageaudit/internal/config"
	"github.com/nao1215/pageaudit/internal/model"
	"github.com/nao1215/pageaudit/internal/report"
	"github.com/nao1215/pageaudit/internal/retry"
	"github.com/nao1215/pageaudit/internal/timing"
)

// EventKind describes a progress event.
type EventKind int

const (
	// EventStarted is sent before a page is audited.
	EventStarted EventKind = iota
	// EventRecorded is sent after a page was recorded.
	EventRecorded
	// EventSkipped is sent when a CAPTCHA kept a page out of the report.
	EventSkipped
	// EventWaiting is sent before the delay between pages.
	EventWaiting
)

// Event reports progress of a suite run.
type Event struct {
	Kind   EventKind
	Suite  string
	Index  int
	Total  int
	Target model.PageTarget

	// Record is set for EventRecorded.
	Record *model.PageAuditRecord

	// Delay is set for EventWaiting.
	Delay time.Duration
}

// SuiteRunner audits the pages of one suite in order.
type SuiteRunner struct {
	driver        browser.Driver
	suite         config.Suite
	screenshotDir string
	topN          int
	pageDelay     time.Duration
	captcha       retry.Policy
	logger        *slog.Logger
	progress      func(Event)
	sleep         func(ctx context.Context, d time.Duration) error
}

// RunnerOption configures a SuiteRunner.
type RunnerOption func(*SuiteRunner)

// WithScreenshotDir sets where screenshots are written.
func WithScreenshotDir(dir string) RunnerOption {
	return func(r *SuiteRunner) { r.screenshotDir = dir }
}

// WithTopN sets how many of the slowest resources are kept.
func WithTopN(n int) RunnerOption {
	return func(r *SuiteRunner) { r.topN = n }
}

// WithPageDelay sets the wait between two pages.
func WithPageDelay(d time.Duration) RunnerOption {
	return func(r *SuiteRunner) { r.pageDelay = d }
}

// WithCaptchaPolicy sets the retry policy for CAPTCHA interstitials.
func WithCaptchaPolicy(p retry.Policy) RunnerOption {
	return func(r *SuiteRunner) { r.captcha = p }
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *SuiteRunner) { r.logger = logger }
}

// WithProgress sets a callback invoked for every Event. It runs on the
// runner's goroutine.
func WithProgress(fn func(Event)) RunnerOption {
	return func(r *SuiteRunner) { r.progress = fn }
}

// WithDelaySleep replaces the function that waits between pages.
func WithDelaySleep(fn func(ctx context.Context, d time.Duration) error) RunnerOption {
	return func(r *SuiteRunner) { r.sleep = fn }
}

// NewSuiteRunner creates a runner for suite.
func NewSuiteRunner(driver browser.Driver, suite config.Suite, opts ...RunnerOption) *SuiteRunner {
	r := &SuiteRunner{
		driver:        driver,
		suite:         suite,
		screenshotDir: config.DefaultScreenshotDir,
		topN:          timing.DefaultTopN,
		pageDelay:     config.DefaultPageDelay,
		captcha:       retry.NewPolicy(),
		progress:      func(Event) {},
		sleep:         retry.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run audits every page and records the results in agg. Pages blocked by
// a CAPTCHA are passed to agg.Skip. Run stops early only when ctx is
// done; records gathered so far stay in agg.
func (r *SuiteRunner) Run(ctx context.Context, agg *report.Aggregator) error {
	total := len(r.suite.Pages)
	for i, target := range r.suite.Pages {
		if i > 0 && r.pageDelay > 0 {
			r.progress(Event{Kind: EventWaiting, Suite: r.suite.Name, Index: i, Total: total, Target: target, Delay: r.pageDelay})
			if err := r.sleep(ctx, r.pageDelay); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		r.progress(Event{Kind: EventStarted, Suite: r.suite.Name, Index: i, Total: total, Target: target})
		audit, err := r.auditPage(ctx, target)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if errors.Is(err, ErrCaptchaBlocked) {
			r.logger.Warn("page skipped: captcha did not clear", "suite", r.suite.Name, "url", target.URL)
			agg.Skip(target)
			r.progress(Event{Kind: EventSkipped, Suite: r.suite.Name, Index: i, Total: total, Target: target})
			continue
		}

		rec := audit.Record()
		agg.Record(rec)
		r.progress(Event{Kind: EventRecorded, Suite: r.suite.Name, Index: i, Total: total, Target: target, Record: &rec})
	}
	return nil
}

// auditPage runs the pipeline for one target on a fresh page.
func (r *SuiteRunner) auditPage(ctx context.Context, target model.PageTarget) (*model.PageAudit, error) {
	audit := model.NewPageAudit(target)

	page, err := r.driver.NewPage(ctx, browser.PageOptions{
		Cookie:    r.suite.Cookie,
		CookieURL: target.URL,
		Headers:   r.suite.Headers,
	})
	if err != nil {
		audit.Err = fmt.Errorf("failed to open page: %w", err)
		return audit, audit.Err
	}
	defer func() {
		if err := page.Close(); err != nil {
			r.logger.Debug("failed to close page", "url", target.URL, "error", err)
		}
	}()

	p := r.newPipeline(page)
	return audit, p.Execute(ctx, audit)
}

// newPipeline assembles the page audit steps.
func (r *SuiteRunner) newPipeline(page browser.Page) *Pipeline {
	p := New(WithLogger(r.logger), WithContinueOnError(true))
	p.AddSteps(
		NewNavigateStep(page),
		NewCaptchaStep(page, r.suite.CaptchaSelectors, r.captcha, r.screenshotDir, WithCaptchaLogger(r.logger)),
		NewHeadingStep(page, r.suite.HeadingSelector),
		NewElementsStep(page, r.suite.Elements),
		NewMetricsStep(page, r.topN, r.suite.ResourceFilter),
		NewScreenshotStep(page, r.screenshotDir, r.suite.Name, r.logger),
	)
	return p
}
