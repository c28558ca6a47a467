package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pageaudit"

	// DefaultTimeout bounds a single navigation or assertion.
	DefaultTimeout = 60 * time.Second

	// DefaultTopN is the number of slowest resources kept per page.
	DefaultTopN = 5

	// DefaultPageDelay is the pause between two pages of the same suite.
	// Forbes rate-limits aggressive visitors with CAPTCHA interstitials.
	DefaultPageDelay = 60 * time.Second

	// DefaultCaptchaRetries is the number of CAPTCHA checks before a page is skipped.
	DefaultCaptchaRetries = 3

	// DefaultCaptchaBackoff is the wait after the first positive CAPTCHA check.
	DefaultCaptchaBackoff = 5 * time.Second

	// DefaultScreenshotDir is where page screenshots are written.
	DefaultScreenshotDir = "screenshots"

	// DefaultFormat is the report format used when none is given.
	DefaultFormat = "json"

	// DefaultDriver is the browser driver used when none is given.
	DefaultDriver = DriverPlaywright

	// DefaultTimingSource selects where resource timings come from.
	DefaultTimingSource = TimingPerformance

	// DefaultViewportWidth and DefaultViewportHeight size the browser viewport.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720

	// DefaultConcurrency is the number of suites audited at the same time.
	DefaultConcurrency = 1

	// DefaultUserAgent is sent by the http driver. The playwright driver
	// keeps the browser's own user agent unless one is configured.
	DefaultUserAgent = "pageaudit/1.0 (+https://github.com/nao1215/pageaudit)"

	// SuitePlaceholder is replaced by the suite name in output paths.
	SuitePlaceholder = "{suite}"
)

// Driver names.
const (
	DriverPlaywright = "playwright"
	DriverHTTP       = "http"
)

// Timing source names.
const (
	TimingPerformance = "performance"
	TimingNetwork     = "network"
)

// Formats lists the supported report format names.
var Formats = []string{"json", "csv", "html", "markdown", "text"}

// Config holds the options of one pageaudit run. It is populated from CLI
// flags and passed down explicitly; there is no global state.
type Config struct {
	// Suites names the suites to run, in order.
	Suites []string

	// ConfigFilePath is the path to the suite file. If empty, the default
	// search locations are used.
	ConfigFilePath string

	// SuiteConfigs holds suites loaded from the config file merged over the
	// built-in suites.
	SuiteConfigs *File

	// Format is the report format name (one of Formats).
	Format string

	// Output is the report path. It may contain {suite}. "-" writes to stdout.
	// Empty means performance-metrics-{suite}.<ext> in the working directory.
	Output string

	// ScreenshotDir is the directory screenshots are written to.
	ScreenshotDir string

	// TopN caps the number of resources kept per page.
	TopN int

	// Timeout bounds each navigation and assertion.
	Timeout time.Duration

	// PageDelay is the pause between pages of one suite.
	PageDelay time.Duration

	// CaptchaRetries is the number of CAPTCHA checks per page.
	CaptchaRetries int

	// CaptchaBackoff is the base wait between CAPTCHA checks.
	CaptchaBackoff time.Duration

	// Driver selects the browser implementation.
	Driver string

	// Headless runs the browser without a window.
	Headless bool

	// InstallBrowsers downloads the Playwright driver and Chromium before running.
	InstallBrowsers bool

	// TimingSource selects performance API or network event timing.
	TimingSource string

	// ViewportWidth and ViewportHeight size the browser viewport.
	ViewportWidth  int
	ViewportHeight int

	// UserAgent overrides the browser user agent when set.
	UserAgent string

	// CSVPerPage additionally writes one name,duration,initiatorType CSV per page.
	CSVPerPage bool

	// Concurrency is the number of suites audited at the same time.
	Concurrency int

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool

	// SaveToDB stores run results in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	DBDir string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Format:         DefaultFormat,
		ScreenshotDir:  DefaultScreenshotDir,
		TopN:           DefaultTopN,
		Timeout:        DefaultTimeout,
		PageDelay:      DefaultPageDelay,
		CaptchaRetries: DefaultCaptchaRetries,
		CaptchaBackoff: DefaultCaptchaBackoff,
		Driver:         DefaultDriver,
		Headless:       true,
		TimingSource:   DefaultTimingSource,
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		Concurrency:    DefaultConcurrency,
		SaveToDB:       true,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for pageaudit.
// On Linux: ~/.local/share/pageaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pageaudit.
// On Linux: ~/.config/pageaudit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for pageaudit.
// The Playwright driver and browsers are installed below it.
// On Linux: ~/.cache/pageaudit
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the run options and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Suites) == 0 {
		return ErrNoSuite
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.TopN <= 0 {
		return ErrInvalidTopN
	}
	if c.PageDelay < 0 {
		return ErrInvalidDelay
	}
	if c.CaptchaRetries < 1 {
		return ErrInvalidCaptchaRetries
	}
	if c.CaptchaBackoff < 0 {
		return ErrInvalidCaptchaBackoff
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return ErrInvalidViewport
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, c.Format)
	}
	if c.Driver != DriverPlaywright && c.Driver != DriverHTTP {
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	if c.TimingSource != TimingPerformance && c.TimingSource != TimingNetwork {
		return fmt.Errorf("%w: %q", ErrUnknownTimingSource, c.TimingSource)
	}
	if len(c.Suites) > 1 && c.Output != "" && !strings.Contains(c.Output, SuitePlaceholder) {
		return ErrAmbiguousOutput
	}
	return nil
}

// OutputPath returns the report destination for suite.
func (c *Config) OutputPath(suite string) string {
	if c.Output == "" {
		return fmt.Sprintf("performance-metrics-%s.%s", suite, extension(c.Format))
	}
	return strings.ReplaceAll(c.Output, SuitePlaceholder, suite)
}

// extension maps a format name to a file extension.
func extension(format string) string {
	switch format {
	case "markdown":
		return "md"
	case "text":
		return "txt"
	default:
		return format
	}
}
