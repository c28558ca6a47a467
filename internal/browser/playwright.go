package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/nao1215/pageaudit/internal/artifact"
	"github.com/nao1215/pageaudit/internal/model"
	"github.com/nao1215/pageaudit/internal/timing"
)

// Timing sources for PlaywrightOptions.TimingSource.
const (
	TimingPerformance = "performance"
	TimingNetwork     = "network"
)

// resourceTimingScript reads the performance API. Durations are rounded to
// 0.1 ms as the browser reports them.
const resourceTimingScript = `() => performance.getEntriesByType('resource').map(e => ({
  name: e.name,
  duration: Number(e.duration.toFixed(1)),
  initiatorType: e.initiatorType || 'unknown',
}))`

// loadTimeScript returns load event end relative to navigation start in ms,
// falling back to the legacy timing API.
const loadTimeScript = `() => {
  const nav = performance.getEntriesByType('navigation')[0];
  if (nav && nav.loadEventEnd > 0) return nav.loadEventEnd - nav.startTime;
  const t = performance.timing;
  return t.loadEventEnd > 0 ? t.loadEventEnd - t.navigationStart : 0;
}`

// PlaywrightOptions configures a PlaywrightDriver.
type PlaywrightOptions struct {
	// Headless runs Chromium without a window.
	Headless bool

	// Install downloads the driver and Chromium before starting.
	Install bool

	// DriverDir is where the Playwright driver is stored. Empty uses the
	// playwright-go default.
	DriverDir string

	// Timeout bounds navigation and assertions.
	Timeout time.Duration

	// ViewportWidth and ViewportHeight size the page.
	ViewportWidth  int
	ViewportHeight int

	// UserAgent overrides the browser user agent when set.
	UserAgent string

	// TimingSource is TimingPerformance (default) or TimingNetwork.
	TimingSource string

	// Logger receives page runtime errors and debug output.
	Logger *slog.Logger
}

// PlaywrightDriver runs Chromium through playwright-go. Each NewPage call
// creates a separate browser context.
type PlaywrightDriver struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    PlaywrightOptions
	logger  *slog.Logger
}

// NewPlaywrightDriver starts Playwright and launches Chromium.
func NewPlaywrightDriver(opts PlaywrightOptions) (*PlaywrightDriver, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runOpts := &playwright.RunOptions{
		DriverDirectory: opts.DriverDir,
		Browsers:        []string{"chromium"},
		Verbose:         false,
		Stdout:          io.Discard,
		Stderr:          io.Discard,
	}
	if opts.Install {
		logger.Info("installing playwright driver and chromium", "dir", opts.DriverDir)
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright (try --install-browsers): %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &PlaywrightDriver{pw: pw, browser: b, opts: opts, logger: logger}, nil
}

// NewPage opens a new context and page.
func (d *PlaywrightDriver) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  d.opts.ViewportWidth,
			Height: d.opts.ViewportHeight,
		},
	}
	if d.opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(d.opts.UserAgent)
	}
	if len(opts.Headers) > 0 {
		contextOpts.ExtraHttpHeaders = opts.Headers
	}

	bctx, err := d.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	if cookies := toPlaywrightCookies(opts.Cookie, opts.CookieURL); len(cookies) > 0 {
		if err := bctx.AddCookies(cookies); err != nil {
			_ = bctx.Close()
			return nil, fmt.Errorf("failed to set cookies: %w", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	timeoutMs := float64(d.opts.Timeout / time.Millisecond)
	page.SetDefaultTimeout(timeoutMs)
	page.SetDefaultNavigationTimeout(timeoutMs)

	p := &playwrightPage{
		page:      page,
		context:   bctx,
		timeoutMs: timeoutMs,
		logger:    d.logger,
	}
	page.OnPageError(func(err error) {
		d.logger.Warn("page runtime error", "url", page.URL(), "error", err)
	})
	if d.opts.TimingSource == TimingNetwork {
		p.tracker = timing.NewRequestTracker()
		page.OnRequest(func(req playwright.Request) {
			p.tracker.Start(req.URL(), req.ResourceType(), time.Now())
		})
		page.OnRequestFinished(func(req playwright.Request) {
			p.tracker.Finish(req.URL(), time.Now())
		})
		page.OnRequestFailed(func(req playwright.Request) {
			p.tracker.Fail(req.URL())
		})
	}
	return p, nil
}

// Close closes the browser and stops Playwright.
func (d *PlaywrightDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		d.browser = nil
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		d.pw = nil
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// playwrightPage implements Page on a playwright.Page.
type playwrightPage struct {
	page      playwright.Page
	context   playwright.BrowserContext
	timeoutMs float64
	tracker   *timing.RequestTracker
	logger    *slog.Logger
}

func (p *playwrightPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.tracker != nil {
		p.tracker.Reset()
	}

	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(p.timeoutMs),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	if resp != nil && resp.Status() >= 400 {
		p.logger.Debug("page responded with error status", "url", url, "status", resp.Status())
	}
	return nil
}

func (p *playwrightPage) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Title()
}

func (p *playwrightPage) AssertHeading(ctx context.Context, selector, expected string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := p.page.Locator(selector).First()
	err := playwright.NewPlaywrightAssertions(p.timeoutMs).Locator(loc).ToContainText(expected)
	if err != nil {
		return fmt.Errorf("%w: %s does not contain %q: %v", ErrAssertion, selector, expected, err)
	}
	return nil
}

func (p *playwrightPage) AssertVisible(ctx context.Context, check model.ElementCheck) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var loc playwright.Locator
	if check.Selector != "" {
		loc = p.page.Locator(check.Selector).First()
	} else {
		loc = p.page.GetByRole(playwright.AriaRole(check.Role), playwright.PageGetByRoleOptions{
			Name:  check.Name,
			Exact: playwright.Bool(check.Exact),
		}).First()
	}
	if err := playwright.NewPlaywrightAssertions(p.timeoutMs).Locator(loc).ToBeVisible(); err != nil {
		return fmt.Errorf("%w: %s is not visible: %v", ErrAssertion, check.Label(), err)
	}
	return nil
}

func (p *playwrightPage) CaptchaVisible(ctx context.Context, selectors []string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(selectors) == 0 {
		return false, nil
	}
	visible, err := p.page.Locator(strings.Join(selectors, ", ")).First().IsVisible()
	if err != nil {
		// A detached or navigating frame is treated as no challenge.
		p.logger.Debug("captcha check failed", "error", err)
		return false, nil
	}
	return visible, nil
}

func (p *playwrightPage) ResourceTimings(ctx context.Context) ([]model.ResourceSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.tracker != nil {
		return p.tracker.Samples(), nil
	}

	raw, err := p.page.Evaluate(resourceTimingScript)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource timings: %w", err)
	}
	return decodeResourceEntries(raw)
}

func (p *playwrightPage) LoadTime(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := p.page.Evaluate(loadTimeScript)
	if err != nil {
		return 0, fmt.Errorf("failed to read navigation timing: %w", err)
	}
	return toFloat(raw), nil
}

func (p *playwrightPage) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := artifact.EnsureParent(path); err != nil {
		return err
	}
	if _, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return fmt.Errorf("failed to take screenshot: %w", err)
	}
	return nil
}

func (p *playwrightPage) Close() error {
	pageErr := p.page.Close()
	ctxErr := p.context.Close()
	if pageErr != nil {
		return pageErr
	}
	return ctxErr
}

// resourceEntry mirrors the objects built by resourceTimingScript.
type resourceEntry struct {
	Name          string  `json:"name"`
	Duration      float64 `json:"duration"`
	InitiatorType string  `json:"initiatorType"`
}

// decodeResourceEntries converts the value returned by Evaluate.
func decodeResourceEntries(raw any) ([]model.ResourceSample, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource timings: %w", err)
	}
	var entries []resourceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unexpected resource timing shape: %w", err)
	}

	samples := make([]model.ResourceSample, 0, len(entries))
	for _, e := range entries {
		samples = append(samples, model.NewResourceSample(e.Name, e.Duration, e.InitiatorType))
	}
	return samples, nil
}

// toFloat converts a numeric value returned by Evaluate.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// toPlaywrightCookies scopes a Cookie header to url.
func toPlaywrightCookies(header, url string) []playwright.OptionalCookie {
	if url == "" {
		return nil
	}
	parsed := parseCookieHeader(header)
	out := make([]playwright.OptionalCookie, 0, len(parsed))
	for _, c := range parsed {
		out = append(out, playwright.OptionalCookie{
			Name:  c.Name,
			Value: c.Value,
			URL:   playwright.String(url),
		})
	}
	return out
}
