package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/nao1215/pageaudit/internal/browser"
	"github.com/nao1215/pageaudit/internal/model"
)

// fakePage is a scripted browser.Page.
type fakePage struct {
	mu sync.Mutex

	gotoErr      error
	title        string
	headingErr   error
	visibleErr   map[string]error
	captchaSeq   []bool
	samples      []model.ResourceSample
	loadTime     float64
	screenshotOK bool

	gotoCalls    []string
	captchaCalls int
	screenshots  []string
	closed       bool
}

func (p *fakePage) Goto(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	p.gotoCalls = append(p.gotoCalls, url)
	if p.gotoErr != nil {
		return fmt.Errorf("%w: %w", browser.ErrNavigation, p.gotoErr)
	}
	return nil
}

func (p *fakePage) Title(context.Context) (string, error) { return p.title, nil }

func (p *fakePage) AssertHeading(_ context.Context, _, _ string) error { return p.headingErr }

func (p *fakePage) AssertVisible(_ context.Context, check model.ElementCheck) error {
	return p.visibleErr[check.Label()]
}

func (p *fakePage) CaptchaVisible(context.Context, []string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.captchaCalls
	p.captchaCalls++
	if i < len(p.captchaSeq) {
		return p.captchaSeq[i], nil
	}
	return false, nil
}

func (p *fakePage) ResourceTimings(context.Context) ([]model.ResourceSample, error) {
	return p.samples, nil
}

func (p *fakePage) LoadTime(context.Context) (float64, error) { return p.loadTime, nil }

func (p *fakePage) Screenshot(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.screenshotOK {
		return browser.ErrScreenshotUnsupported
	}
	p.screenshots = append(p.screenshots, path)
	return os.WriteFile(path, []byte("png"), 0o600)
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// fakeDriver hands out pages from a function keyed by call order.
type fakeDriver struct {
	mu      sync.Mutex
	newPage func(n int) *fakePage
	pages   []*fakePage
	opts    []browser.PageOptions
}

func (d *fakeDriver) NewPage(ctx context.Context, opts browser.PageOptions) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.newPage == nil {
		return nil, errors.New("no pages")
	}
	p := d.newPage(len(d.pages))
	d.pages = append(d.pages, p)
	d.opts = append(d.opts, opts)
	return p, nil
}

func (d *fakeDriver) Close() error { return nil }

func samples() []model.ResourceSample {
	return []model.ResourceSample{
		{Name: "https://www.forbes.com/a.js", Duration: 120, InitiatorType: "script"},
		{Name: "https://www.forbes.com/b.css", Duration: 300, InitiatorType: "link"},
		{Name: "https://x.com/c.js", Duration: 999, InitiatorType: "script"},
		{Name: "not a url", Duration: 5000, InitiatorType: "other"},
	}
}
