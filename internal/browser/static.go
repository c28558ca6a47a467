package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pageaudit/internal/model"
)

const (
	// DefaultMaxResources caps how many subresources a static page fetches.
	DefaultMaxResources = 50

	// DefaultMaxBodySize caps how much of a document is read.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// resourceFetchLimit bounds concurrent subresource requests per page.
	resourceFetchLimit = 6
)

// resourceSelector picks the elements whose URLs a browser would load.
const resourceSelector = `link[href][rel~="stylesheet"], link[href][rel~="preload"], link[href][rel~="icon"], ` +
	`script[src], img[src], iframe[src], source[src], video[src], audio[src]`

// hasTextPattern splits `div:has-text("Press & Hold")` into base selector and text.
var hasTextPattern = regexp.MustCompile(`^(.*):has-text\((["'])(.*)["']\)\s*$`)

// StaticOptions configures a StaticDriver.
type StaticOptions struct {
	// Client performs requests. Nil uses a client with Timeout.
	Client *http.Client

	// Timeout bounds each request.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxResources caps how many subresources are timed per page.
	MaxResources int

	// MaxBodySize caps how many bytes of a document are parsed.
	MaxBodySize int64

	// Logger receives debug output.
	Logger *slog.Logger
}

// StaticDriver audits pages without a browser. Documents are fetched over
// HTTP and inspected with goquery; subresources are downloaded and timed
// so resource ranking still has data.
type StaticDriver struct {
	client *http.Client
	opts   StaticOptions
	logger *slog.Logger
}

// NewStaticDriver creates a StaticDriver.
func NewStaticDriver(opts StaticOptions) *StaticDriver {
	if opts.MaxResources <= 0 {
		opts.MaxResources = DefaultMaxResources
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticDriver{client: client, opts: opts, logger: logger}
}

// NewPage returns a page that sends the given cookie and headers.
func (d *StaticDriver) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &staticPage{driver: d, opts: opts}, nil
}

// Close is a no-op; the HTTP client owns no browser.
func (d *StaticDriver) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// staticPage implements Page on a parsed document.
type staticPage struct {
	driver *StaticDriver
	opts   PageOptions

	doc      *goquery.Document
	samples  []model.ResourceSample
	loadTime float64
}

func (p *staticPage) newRequest(ctx context.Context, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if p.driver.opts.UserAgent != "" {
		req.Header.Set("User-Agent", p.driver.opts.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range p.opts.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range parseCookieHeader(p.opts.Cookie) {
		req.AddCookie(c)
	}
	return req, nil
}

func (p *staticPage) Goto(ctx context.Context, target string) error {
	p.doc = nil
	p.samples = nil
	p.loadTime = 0

	start := time.Now()
	req, err := p.newRequest(ctx, target)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, target, err)
	}
	resp, err := p.driver.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		p.driver.logger.Debug("page responded with error status", "url", target, "status", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, p.driver.opts.MaxBodySize))
	if err != nil {
		return fmt.Errorf("%w: %s: failed to parse document: %w", ErrNavigation, target, err)
	}
	doc.Url = resp.Request.URL
	p.doc = doc

	p.samples = p.fetchResources(ctx, p.resourceURLs())
	p.loadTime = roundTenth(float64(time.Since(start)) / float64(time.Millisecond))
	return nil
}

// discoveredResource is a subresource URL and the element that referenced it.
type discoveredResource struct {
	url       string
	initiator string
}

// resourceURLs lists absolute http(s) subresource URLs in document order.
func (p *staticPage) resourceURLs() []discoveredResource {
	seen := make(map[string]struct{})
	var out []discoveredResource
	p.doc.Find(resourceSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(out) >= p.driver.opts.MaxResources {
			return false
		}
		attr := "src"
		if goquery.NodeName(s) == "link" {
			attr = "href"
		}
		raw, _ := s.Attr(attr)
		ref, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return true
		}
		abs := p.doc.Url.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		abs.Fragment = ""
		key := abs.String()
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		out = append(out, discoveredResource{url: key, initiator: goquery.NodeName(s)})
		return true
	})
	return out
}

// fetchResources downloads every resource and records how long each took.
// Samples keep document order. Failed requests are left out, matching what a
// browser reports.
func (p *staticPage) fetchResources(ctx context.Context, resources []discoveredResource) []model.ResourceSample {
	results := make([]*model.ResourceSample, len(resources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resourceFetchLimit)
	for i, r := range resources {
		g.Go(func() error {
			ms, err := p.timeRequest(gctx, r.url)
			if err != nil {
				p.driver.logger.Debug("resource fetch failed", "url", r.url, "error", err)
				return nil
			}
			sample := model.NewResourceSample(r.url, ms, r.initiator)
			results[i] = &sample
			return nil
		})
	}
	_ = g.Wait()

	samples := make([]model.ResourceSample, 0, len(resources))
	for _, s := range results {
		if s != nil {
			samples = append(samples, *s)
		}
	}
	return samples
}

// timeRequest returns the milliseconds from request start to the last body byte.
func (p *staticPage) timeRequest(ctx context.Context, target string) (float64, error) {
	req, err := p.newRequest(ctx, target)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := p.driver.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, p.driver.opts.MaxBodySize)); err != nil {
		return 0, err
	}
	return roundTenth(float64(time.Since(start)) / float64(time.Millisecond)), nil
}

func (p *staticPage) Title(_ context.Context) (string, error) {
	if p.doc == nil {
		return "", ErrNoDocument
	}
	return collapseSpace(p.doc.Find("title").First().Text()), nil
}

func (p *staticPage) AssertHeading(_ context.Context, selector, expected string) error {
	if p.doc == nil {
		return ErrNoDocument
	}
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return fmt.Errorf("%w: no element matches %s", ErrAssertion, selector)
	}
	if isHidden(sel) {
		return fmt.Errorf("%w: %s is hidden", ErrAssertion, selector)
	}
	text := collapseSpace(sel.Text())
	if !strings.Contains(text, collapseSpace(expected)) {
		return fmt.Errorf("%w: %s text %q does not contain %q", ErrAssertion, selector, text, expected)
	}
	return nil
}

func (p *staticPage) AssertVisible(_ context.Context, check model.ElementCheck) error {
	if p.doc == nil {
		return ErrNoDocument
	}

	var candidates *goquery.Selection
	if check.Selector != "" {
		candidates = p.doc.Find(check.Selector)
	} else {
		candidates = p.doc.Find(roleSelector(check.Role)).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return nameMatches(accessibleName(p.doc, s), check.Name, check.Exact)
		})
	}

	if candidates.Length() == 0 {
		return fmt.Errorf("%w: %s not found", ErrAssertion, check.Label())
	}
	visible := candidates.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return !isHidden(s)
	})
	if visible.Length() == 0 {
		return fmt.Errorf("%w: %s is hidden", ErrAssertion, check.Label())
	}
	return nil
}

func (p *staticPage) CaptchaVisible(_ context.Context, selectors []string) (bool, error) {
	if p.doc == nil {
		return false, ErrNoDocument
	}
	for _, selector := range selectors {
		base, text := splitHasText(selector)
		found := p.doc.Find(base).FilterFunction(func(_ int, s *goquery.Selection) bool {
			if isHidden(s) {
				return false
			}
			if text == "" {
				return true
			}
			return strings.Contains(strings.ToLower(collapseSpace(s.Text())), strings.ToLower(text))
		})
		if found.Length() > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (p *staticPage) ResourceTimings(_ context.Context) ([]model.ResourceSample, error) {
	if p.doc == nil {
		return nil, ErrNoDocument
	}
	out := make([]model.ResourceSample, len(p.samples))
	copy(out, p.samples)
	return out, nil
}

func (p *staticPage) LoadTime(_ context.Context) (float64, error) {
	if p.doc == nil {
		return 0, ErrNoDocument
	}
	return p.loadTime, nil
}

func (p *staticPage) Screenshot(_ context.Context, _ string) error {
	return ErrScreenshotUnsupported
}

func (p *staticPage) Close() error {
	p.doc = nil
	p.samples = nil
	return nil
}

// splitHasText separates a trailing :has-text("...") pseudo-class, which
// goquery does not understand.
func splitHasText(selector string) (base, text string) {
	m := hasTextPattern.FindStringSubmatch(selector)
	if m == nil {
		return selector, ""
	}
	base = strings.TrimSpace(m[1])
	if base == "" {
		base = "*"
	}
	return base, collapseSpace(m[3])
}

// roleSelector maps an ARIA role to the elements that carry it implicitly.
func roleSelector(role string) string {
	switch role {
	case "link":
		return `a[href], area[href], [role="link"]`
	case "button":
		return `button, input[type="button"], input[type="submit"], input[type="reset"], [role="button"]`
	case "heading":
		return `h1, h2, h3, h4, h5, h6, [role="heading"]`
	case "img":
		return `img[alt], [role="img"]`
	case "navigation":
		return `nav, [role="navigation"]`
	case "banner":
		return `header, [role="banner"]`
	case "contentinfo":
		return `footer, [role="contentinfo"]`
	case "main":
		return `main, [role="main"]`
	case "textbox":
		return `input:not([type]), input[type="text"], input[type="email"], input[type="search"], textarea, [role="textbox"]`
	default:
		return fmt.Sprintf(`[role=%q]`, role)
	}
}

// accessibleName approximates the accessible name of s: aria-label,
// aria-labelledby, input value, text content with image alternatives, then title.
func accessibleName(doc *goquery.Document, s *goquery.Selection) string {
	if label, ok := s.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return collapseSpace(label)
	}
	if ids, ok := s.Attr("aria-labelledby"); ok {
		var parts []string
		for _, id := range strings.Fields(ids) {
			if t := collapseSpace(doc.Find("#" + id).Text()); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	if goquery.NodeName(s) == "input" {
		if v, ok := s.Attr("value"); ok && strings.TrimSpace(v) != "" {
			return collapseSpace(v)
		}
	}
	if goquery.NodeName(s) == "img" {
		alt, _ := s.Attr("alt")
		return collapseSpace(alt)
	}

	parts := []string{s.Text()}
	s.Find("img[alt]").Each(func(_ int, img *goquery.Selection) {
		alt, _ := img.Attr("alt")
		parts = append(parts, alt)
	})
	s.Find("svg title").Each(func(_ int, t *goquery.Selection) {
		parts = append(parts, t.Text())
	})
	if name := collapseSpace(strings.Join(parts, " ")); name != "" {
		return name
	}
	title, _ := s.Attr("title")
	return collapseSpace(title)
}

// nameMatches compares an accessible name. Exact matching is
// case-sensitive; otherwise want is a case-insensitive substring.
func nameMatches(name, want string, exact bool) bool {
	want = collapseSpace(want)
	if want == "" {
		return true
	}
	if exact {
		return name == want
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(want))
}

// isHidden reports whether s or an ancestor is hidden from rendering.
func isHidden(s *goquery.Selection) bool {
	if goquery.NodeName(s) == "input" {
		if t, _ := s.Attr("type"); strings.EqualFold(t, "hidden") {
			return true
		}
	}
	for node := s; node.Length() > 0; node = node.Parent() {
		if goquery.NodeName(node) == "#document" {
			break
		}
		if _, ok := node.Attr("hidden"); ok {
			return true
		}
		if v, _ := node.Attr("aria-hidden"); strings.EqualFold(v, "true") {
			return true
		}
		if style, ok := node.Attr("style"); ok && hidesElement(style) {
			return true
		}
	}
	return false
}

// hidesElement reports whether an inline style hides the element.
func hidesElement(style string) bool {
	compact := strings.ToLower(strings.Join(strings.Fields(style), ""))
	return strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden")
}

func roundTenth(ms float64) float64 {
	return math.Round(ms*10) / 10
}
