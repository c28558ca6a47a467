package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/pageaudit/internal/config"
	"github.com/nao1215/pageaudit/internal/model"
	"github.com/nao1215/pageaudit/internal/report"
)

func testSuite() config.Suite {
	return config.Suite{
		Name:             "au",
		Label:            "AU",
		HeadingSelector:  "h1",
		Elements:         config.DefaultElements,
		CaptchaSelectors: config.DefaultCaptchaSelectors,
		ResourceFilter:   model.ResourceFilter{HostContains: "forbes.com"},
		Cookie:           "consent=yes",
		Pages: []model.PageTarget{
			{Title: "Home", URL: "https://www.forbes.com/advisor/au/", Heading: "Forbes Advisor"},
			{Title: "Credit Cards", URL: "https://www.forbes.com/advisor/au/credit-cards/", Heading: "Credit Cards"},
			{Title: "Loans", URL: "https://www.forbes.com/advisor/au/personal-loans/", Heading: "Loans"},
		},
	}
}

func newTestRunner(t *testing.T, driver *fakeDriver, events *[]Event, opts ...RunnerOption) *SuiteRunner {
	t.Helper()

	var mu sync.Mutex
	base := []RunnerOption{
		WithScreenshotDir(t.TempDir()),
		WithCaptchaPolicy(instantPolicy(2)),
		WithRunnerLogger(discardLogger()),
		WithDelaySleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		WithProgress(func(e Event) {
			mu.Lock()
			defer mu.Unlock()
			*events = append(*events, e)
		}),
	}
	return NewSuiteRunner(driver, testSuite(), append(base, opts...)...)
}

func TestSuiteRunnerRun(t *testing.T) {
	t.Parallel()

	t.Run("records every page in order", func(t *testing.T) {
		t.Parallel()

		driver := &fakeDriver{newPage: func(int) *fakePage {
			return &fakePage{samples: samples(), loadTime: 100, screenshotOK: true}
		}}
		var events []Event
		agg := report.NewAggregator("au")
		if err := newTestRunner(t, driver, &events).Run(context.Background(), agg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		records := agg.Records()
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		for i, want := range testSuite().Pages {
			if records[i].Title != want.Title || records[i].URL != want.URL {
				t.Errorf("record %d: got %s %s", i, records[i].Title, records[i].URL)
			}
			if records[i].Status != model.StatusPassed {
				t.Errorf("record %d: expected passed, got %s (%+v)", i, records[i].Status, records[i].Checks)
			}
			if len(records[i].TopResources) != 2 {
				t.Errorf("record %d: expected 2 top resources, got %d", i, len(records[i].TopResources))
			}
		}

		for i, p := range driver.pages {
			if !p.closed {
				t.Errorf("page %d was not closed", i)
			}
		}
		if driver.opts[1].Cookie != "consent=yes" || driver.opts[1].CookieURL != testSuite().Pages[1].URL {
			t.Errorf("unexpected page options %+v", driver.opts[1])
		}

		var waits, recorded int
		for _, e := range events {
			switch e.Kind {
			case EventWaiting:
				waits++
			case EventRecorded:
				recorded++
			}
		}
		if waits != 2 || recorded != 3 {
			t.Errorf("expected 2 waits and 3 recorded events, got %d and %d", waits, recorded)
		}
	})

	t.Run("navigation failure is recorded and the run continues", func(t *testing.T) {
		t.Parallel()

		driver := &fakeDriver{newPage: func(n int) *fakePage {
			if n == 0 {
				return &fakePage{gotoErr: errors.New("timeout")}
			}
			return &fakePage{samples: samples()}
		}}
		var events []Event
		agg := report.NewAggregator("au")
		if err := newTestRunner(t, driver, &events).Run(context.Background(), agg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		records := agg.Records()
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		if records[0].Status != model.StatusFailed || records[0].Error == "" {
			t.Errorf("expected first record failed with error, got %+v", records[0])
		}
		if records[1].Status != model.StatusPassed {
			t.Errorf("expected second record passed, got %s", records[1].Status)
		}
	})

	t.Run("assertion failure keeps metrics", func(t *testing.T) {
		t.Parallel()

		driver := &fakeDriver{newPage: func(int) *fakePage {
			return &fakePage{headingErr: errors.New("heading mismatch"), samples: samples(), loadTime: 50}
		}}
		var events []Event
		agg := report.NewAggregator("au")
		if err := newTestRunner(t, driver, &events).Run(context.Background(), agg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		rec := agg.Records()[0]
		if rec.Status != model.StatusFailed {
			t.Errorf("expected failed, got %s", rec.Status)
		}
		if rec.LoadTimeMs != 50 || len(rec.TopResources) != 2 {
			t.Errorf("expected metrics despite failure, got %+v", rec)
		}
	})

	t.Run("persistent captcha skips the page", func(t *testing.T) {
		t.Parallel()

		driver := &fakeDriver{newPage: func(n int) *fakePage {
			if n == 1 {
				return &fakePage{captchaSeq: []bool{true, true, true}}
			}
			return &fakePage{}
		}}
		var events []Event
		agg := report.NewAggregator("au")
		if err := newTestRunner(t, driver, &events).Run(context.Background(), agg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if agg.Len() != 2 {
			t.Fatalf("expected 2 records, got %d", agg.Len())
		}
		skipped := agg.Skipped()
		if len(skipped) != 1 || skipped[0].Title != "Credit Cards" {
			t.Errorf("unexpected skipped %+v", skipped)
		}
		var sawSkip bool
		for _, e := range events {
			sawSkip = sawSkip || e.Kind == EventSkipped
		}
		if !sawSkip {
			t.Error("expected a skipped event")
		}
	})

	t.Run("cancellation during the delay stops the run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		driver := &fakeDriver{newPage: func(int) *fakePage { return &fakePage{} }}
		var events []Event
		runner := newTestRunner(t, driver, &events, WithDelaySleep(func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		}))

		agg := report.NewAggregator("au")
		if err := runner.Run(ctx, agg); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if agg.Len() != 1 {
			t.Errorf("expected the first page to stay recorded, got %d", agg.Len())
		}
	})

	t.Run("zero delay does not wait", func(t *testing.T) {
		t.Parallel()

		driver := &fakeDriver{newPage: func(int) *fakePage { return &fakePage{} }}
		var events []Event
		runner := newTestRunner(t, driver, &events, WithPageDelay(0), WithDelaySleep(func(context.Context, time.Duration) error {
			t.Error("sleep must not be called")
			return nil
		}))
		if err := runner.Run(context.Background(), report.NewAggregator("au")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestSuiteRunnerSharedScreenshotDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	run := func(name string) []model.PageAuditRecord {
		suite := testSuite()
		suite.Name = name
		driver := &fakeDriver{newPage: func(int) *fakePage {
			return &fakePage{samples: samples(), loadTime: 100, screenshotOK: true}
		}}
		runner := NewSuiteRunner(driver, suite,
			WithScreenshotDir(dir),
			WithCaptchaPolicy(instantPolicy(1)),
			WithRunnerLogger(discardLogger()),
			WithDelaySleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		)
		agg := report.NewAggregator(name)
		if err := runner.Run(context.Background(), agg); err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		return agg.Records()
	}

	au := run("au")
	ca := run("ca")
	if len(au) != len(ca) {
		t.Fatalf("expected equal record counts, got %d and %d", len(au), len(ca))
	}
	for i := range au {
		if au[i].Title != ca[i].Title {
			t.Fatalf("record %d: titles differ", i)
		}
		if au[i].Screenshot == "" || au[i].Screenshot == ca[i].Screenshot {
			t.Errorf("record %d: suites share screenshot %q", i, au[i].Screenshot)
		}
	}
	if want := filepath.Join(dir, "au-home.png"); au[0].Screenshot != want {
		t.Errorf("expected %q, got %q", want, au[0].Screenshot)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(au)+len(ca) {
		t.Errorf("expected %d screenshot files, got %d", len(au)+len(ca), len(entries))
	}
}
