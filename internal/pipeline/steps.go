package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/pageaudit/internal/artifact"
	"github.com/nao1215/pageaudit/internal/browser"
	"github.com/nao1215/pageaudit/internal/model"
	"github.com/nao1215/pageaudit/internal/retry"
	"github.com/nao1215/pageaudit/internal/timing"
)

// Check names recorded on the audit.
const (
	CheckHeading = "heading"
	checkElement = "element "
)

// NavigateStep loads the target URL and reads the document title.
type NavigateStep struct {
	page browser.Page
}

// NewNavigateStep creates a NavigateStep.
func NewNavigateStep(page browser.Page) *NavigateStep {
	return &NavigateStep{page: page}
}

// Name returns "navigate".
func (s *NavigateStep) Name() string { return "navigate" }

// Do navigates. A navigation failure aborts the page.
func (s *NavigateStep) Do(ctx context.Context, audit *model.PageAudit) error {
	if err := s.page.Goto(ctx, audit.Target.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrAbortPage, err)
	}
	if title, err := s.page.Title(ctx); err == nil {
		audit.ObservedTitle = title
	}
	return nil
}

// CaptchaStep waits for a CAPTCHA interstitial to go away. Between
// attempts it backs off and reloads the page.
type CaptchaStep struct {
	page          browser.Page
	selectors     []string
	policy        retry.Policy
	screenshotDir string
	now           func() time.Time
	logger        *slog.Logger
}

// CaptchaStepOption configures a CaptchaStep.
type CaptchaStepOption func(*CaptchaStep)

// WithCaptchaLogger sets the logger.
func WithCaptchaLogger(logger *slog.Logger) CaptchaStepOption {
	return func(s *CaptchaStep) { s.logger = logger }
}

// WithCaptchaClock replaces time.Now in evidence file names.
func WithCaptchaClock(now func() time.Time) CaptchaStepOption {
	return func(s *CaptchaStep) { s.now = now }
}

// NewCaptchaStep creates a CaptchaStep. Evidence screenshots go to
// screenshotDir.
func NewCaptchaStep(page browser.Page, selectors []string, policy retry.Policy, screenshotDir string, opts ...CaptchaStepOption) *CaptchaStep {
	s := &CaptchaStep{
		page:          page,
		selectors:     selectors,
		policy:        policy,
		screenshotDir: screenshotDir,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Name returns "captcha".
func (s *CaptchaStep) Name() string { return "captcha" }

// Do returns ErrCaptchaBlocked when the challenge is still visible after
// the last attempt.
func (s *CaptchaStep) Do(ctx context.Context, audit *model.PageAudit) error {
	if len(s.selectors) == 0 {
		return nil
	}

	cleared, err := retry.Until(ctx, s.policy, func(ctx context.Context, attempt int) (bool, error) {
		if attempt > 1 {
			if err := s.page.Goto(ctx, audit.Target.URL); err != nil {
				s.logger.Debug("reload after captcha failed", "url", audit.Target.URL, "error", err)
				if ctx.Err() != nil {
					return false, ctx.Err()
				}
			}
		}
		visible, err := s.page.CaptchaVisible(ctx, s.selectors)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			visible = false
		}
		if visible {
			s.logger.Warn("captcha detected", "url", audit.Target.URL, "attempt", attempt, "max_attempts", s.policy.MaxAttempts)
		}
		return !visible, nil
	})
	if err != nil {
		return err
	}
	if cleared {
		return nil
	}

	audit.CaptchaBlocked = true
	path := artifact.CaptchaScreenshotPath(s.screenshotDir, s.now())
	if err := s.page.Screenshot(ctx, path); err != nil {
		if !errors.Is(err, browser.ErrScreenshotUnsupported) {
			s.logger.Warn("failed to save captcha screenshot", "path", path, "error", err)
		}
	} else {
		audit.Screenshot = path
	}
	return fmt.Errorf("%w: %s", ErrCaptchaBlocked, audit.Target.URL)
}

// HeadingStep asserts that the main heading contains the expected text.
type HeadingStep struct {
	page     browser.Page
	selector string
}

// NewHeadingStep creates a HeadingStep for the given selector.
func NewHeadingStep(page browser.Page, selector string) *HeadingStep {
	return &HeadingStep{page: page, selector: selector}
}

// Name returns "heading".
func (s *HeadingStep) Name() string { return CheckHeading }

// Do records the heading check. Targets without a heading are not checked.
func (s *HeadingStep) Do(ctx context.Context, audit *model.PageAudit) error {
	if audit.Target.Heading == "" {
		return nil
	}
	err := s.page.AssertHeading(ctx, s.selector, audit.Target.Heading)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	audit.AddCheck(CheckHeading, err)
	return nil
}

// ElementsStep asserts that each common element is visible.
type ElementsStep struct {
	page   browser.Page
	checks []model.ElementCheck
}

// NewElementsStep creates an ElementsStep.
func NewElementsStep(page browser.Page, checks []model.ElementCheck) *ElementsStep {
	return &ElementsStep{page: page, checks: checks}
}

// Name returns "elements".
func (s *ElementsStep) Name() string { return "elements" }

// Do records one check per element.
func (s *ElementsStep) Do(ctx context.Context, audit *model.PageAudit) error {
	for _, check := range s.checks {
		err := s.page.AssertVisible(ctx, check)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		audit.AddCheck(checkElement+check.Label(), err)
	}
	return nil
}

// MetricsStep reads load time and resource timings and ranks the slowest
// resources that pass the suite's filter.
type MetricsStep struct {
	page   browser.Page
	topN   int
	filter model.ResourceFilter
}

// NewMetricsStep creates a MetricsStep keeping the topN slowest resources.
func NewMetricsStep(page browser.Page, topN int, filter model.ResourceFilter) *MetricsStep {
	return &MetricsStep{page: page, topN: topN, filter: filter}
}

// Name returns "metrics".
func (s *MetricsStep) Name() string { return "metrics" }

// Do fills LoadTimeMs, Samples and TopResources.
func (s *MetricsStep) Do(ctx context.Context, audit *model.PageAudit) error {
	load, err := s.page.LoadTime(ctx)
	if err != nil {
		return fmt.Errorf("failed to read load time: %w", err)
	}
	audit.LoadTimeMs = load

	samples, err := s.page.ResourceTimings(ctx)
	if err != nil {
		return fmt.Errorf("failed to read resource timings: %w", err)
	}
	audit.Samples = samples

	filter, err := timing.FromConfig(s.filter, audit.Target.URL)
	if err != nil {
		return fmt.Errorf("invalid resource filter: %w", err)
	}
	audit.TopResources = timing.CollectTop(samples, s.topN, filter)
	return nil
}

// ScreenshotStep saves a full-page screenshot named after the suite and
// the page title.
type ScreenshotStep struct {
	page   browser.Page
	dir    string
	suite  string
	logger *slog.Logger
}

// NewScreenshotStep creates a ScreenshotStep writing the screenshots of
// suite into dir.
func NewScreenshotStep(page browser.Page, dir, suite string, logger *slog.Logger) *ScreenshotStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScreenshotStep{page: page, dir: dir, suite: suite, logger: logger}
}

// Name returns "screenshot".
func (s *ScreenshotStep) Name() string { return "screenshot" }

// Do takes the screenshot. Drivers that cannot render are skipped.
func (s *ScreenshotStep) Do(ctx context.Context, audit *model.PageAudit) error {
	path := artifact.ScreenshotPath(s.dir, s.suite, audit.Title())
	if err := s.page.Screenshot(ctx, path); err != nil {
		if errors.Is(err, browser.ErrScreenshotUnsupported) {
			s.logger.Debug("screenshot skipped", "url", audit.Target.URL, "reason", err)
			return nil
		}
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	audit.Screenshot = path
	return nil
}
