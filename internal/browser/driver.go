package browser

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nao1215/pageaudit/internal/model"
)

var (
	// ErrNavigation is returned when a page could not be loaded.
	ErrNavigation = errors.New("navigation failed")

	// ErrAssertion is returned when a heading or element check fails.
	ErrAssertion = errors.New("assertion failed")

	// ErrScreenshotUnsupported is returned by drivers that cannot render pages.
	ErrScreenshotUnsupported = errors.New("screenshots are not supported by this driver")

	// ErrNoDocument is returned when a page is inspected before Goto succeeded.
	ErrNoDocument = errors.New("no document loaded")
)

// Driver creates pages. Implementations must be safe for use by several
// suites at once; a single Page is not.
type Driver interface {
	// NewPage opens a fresh page with its own cookies and headers.
	NewPage(ctx context.Context, opts PageOptions) (Page, error)

	// Close releases the browser.
	Close() error
}

// PageOptions configures a page for one suite.
type PageOptions struct {
	// Cookie is a Cookie header value, "name=value; name2=value2".
	Cookie string

	// CookieURL scopes Cookie. Usually the first page of the suite.
	CookieURL string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string
}

// Page is one browser tab.
type Page interface {
	// Goto navigates to url and waits for the load event.
	Goto(ctx context.Context, url string) error

	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// AssertHeading checks that the first element matching selector
	// contains expected. Failures wrap ErrAssertion.
	AssertHeading(ctx context.Context, selector, expected string) error

	// AssertVisible checks that the element described by check is visible.
	// Failures wrap ErrAssertion.
	AssertVisible(ctx context.Context, check model.ElementCheck) error

	// CaptchaVisible reports whether any selector matches a visible element.
	CaptchaVisible(ctx context.Context, selectors []string) (bool, error)

	// ResourceTimings returns every resource-timing sample of the document.
	ResourceTimings(ctx context.Context) ([]model.ResourceSample, error)

	// LoadTime returns the navigation load time in milliseconds.
	LoadTime(ctx context.Context) (float64, error)

	// Screenshot writes a full-page PNG to path.
	Screenshot(ctx context.Context, path string) error

	// Close releases the page.
	Close() error
}

// parseCookieHeader splits a Cookie header value into name/value pairs.
// Malformed pairs are skipped.
func parseCookieHeader(header string) []*http.Cookie {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	cookies, err := http.ParseCookie(header)
	if err == nil {
		return cookies
	}

	var out []*http.Cookie
	for part := range strings.SplitSeq(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: name, Value: value})
	}
	return out
}

// collapseSpace trims s and folds runs of whitespace into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
