package config

import (
	"errors"
	"testing"

	"github.com/nao1215/pageaudit/internal/model"
)

// TestBuiltinSuites checks the shipped suites are complete.
func TestBuiltinSuites(t *testing.T) {
	t.Parallel()

	suites := BuiltinSuites()

	t.Run("au has four pages", func(t *testing.T) {
		t.Parallel()
		if got := len(suites["au"].Pages); got != 4 {
			t.Errorf("expected 4 pages, got %d", got)
		}
	})

	t.Run("ca has eleven pages", func(t *testing.T) {
		t.Parallel()
		if got := len(suites["ca"].Pages); got != 11 {
			t.Errorf("expected 11 pages, got %d", got)
		}
	})

	t.Run("every page has title url and heading", func(t *testing.T) {
		t.Parallel()
		for name, s := range suites {
			for _, p := range s.Pages {
				if p.Title == "" || p.URL == "" || p.Heading == "" {
					t.Errorf("suite %s: incomplete page %+v", name, p)
				}
			}
		}
	})

	t.Run("returns a fresh map", func(t *testing.T) {
		t.Parallel()
		a := BuiltinSuites()
		a["au"] = Suite{}
		if len(BuiltinSuites()["au"].Pages) == 0 {
			t.Error("built-in suites were modified through a returned map")
		}
	})
}

// TestFileGetSuite tests suite lookup and default merging.
func TestFileGetSuite(t *testing.T) {
	t.Parallel()

	t.Run("nil file returns built-in suite with defaults", func(t *testing.T) {
		t.Parallel()

		var cf *File
		s, err := cf.GetSuite("au")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Name != "au" || s.Label != "AU" {
			t.Errorf("unexpected identity %q %q", s.Name, s.Label)
		}
		if s.HeadingSelector != DefaultHeadingSelector {
			t.Errorf("expected h1, got %q", s.HeadingSelector)
		}
		if len(s.Elements) != len(DefaultElements) {
			t.Errorf("expected default elements, got %+v", s.Elements)
		}
		if len(s.CaptchaSelectors) != len(DefaultCaptchaSelectors) {
			t.Errorf("expected default captcha selectors, got %v", s.CaptchaSelectors)
		}
	})

	t.Run("unknown suite", func(t *testing.T) {
		t.Parallel()

		cf := &File{}
		if _, err := cf.GetSuite("nz"); !errors.Is(err, ErrUnknownSuite) {
			t.Errorf("expected ErrUnknownSuite, got %v", err)
		}
	})

	t.Run("suite without pages", func(t *testing.T) {
		t.Parallel()

		cf := &File{Suites: map[string]Suite{"empty": {}}}
		if _, err := cf.GetSuite("empty"); !errors.Is(err, ErrEmptySuite) {
			t.Errorf("expected ErrEmptySuite, got %v", err)
		}
	})

	t.Run("configured suite replaces built-in", func(t *testing.T) {
		t.Parallel()

		cf := &File{Suites: map[string]Suite{
			"au": {Pages: []model.PageTarget{{Title: "Only", URL: "https://example.com"}}},
		}}
		s, err := cf.GetSuite("au")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s.Pages) != 1 || s.Pages[0].Title != "Only" {
			t.Errorf("unexpected pages %+v", s.Pages)
		}
	})

	t.Run("file defaults apply to built-in suites", func(t *testing.T) {
		t.Parallel()

		cf := &File{Defaults: Suite{Cookie: "consent=yes", Headers: map[string]string{"X-A": "1"}}}
		s, err := cf.GetSuite("ca")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Cookie != "consent=yes" || s.Headers["X-A"] != "1" {
			t.Errorf("defaults not applied: %+v", s)
		}
		if s.ResourceFilter.HostContains != "forbes.com" {
			t.Errorf("suite filter lost: %+v", s.ResourceFilter)
		}
	})

	t.Run("suite headers override default headers", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: Suite{Headers: map[string]string{"X-A": "default", "X-B": "keep"}},
			Suites: map[string]Suite{"s": {
				Headers: map[string]string{"X-A": "suite"},
				Pages:   []model.PageTarget{{URL: "https://example.com"}},
			}},
		}
		s, err := cf.GetSuite("s")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Headers["X-A"] != "suite" || s.Headers["X-B"] != "keep" {
			t.Errorf("unexpected headers %v", s.Headers)
		}
		if cf.Defaults.Headers["X-A"] != "default" {
			t.Error("defaults were modified")
		}
	})

	t.Run("explicit empty elements disables checks", func(t *testing.T) {
		t.Parallel()

		cf := &File{Suites: map[string]Suite{"s": {
			Elements: []model.ElementCheck{},
			Pages:    []model.PageTarget{{URL: "https://example.com"}},
		}}}
		s, err := cf.GetSuite("s")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s.Elements) != 0 {
			t.Errorf("expected no elements, got %+v", s.Elements)
		}
	})
}

// TestFileSuiteNames tests suite listing.
func TestFileSuiteNames(t *testing.T) {
	t.Parallel()

	cf := &File{Suites: map[string]Suite{"staging": {}, "au": {}}}
	got := cf.SuiteNames()
	want := []string{"au", "ca", "staging"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

// TestSuiteDigest tests the suite fingerprint.
func TestSuiteDigest(t *testing.T) {
	t.Parallel()

	base, err := (*File)(nil).GetSuite("au")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("stable for equal suites", func(t *testing.T) {
		t.Parallel()
		other, _ := (*File)(nil).GetSuite("au")
		if base.Digest() != other.Digest() {
			t.Error("digest differs for identical suites")
		}
		if len(base.Digest()) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(base.Digest()))
		}
	})

	t.Run("changes with pages", func(t *testing.T) {
		t.Parallel()
		changed := base
		changed.Pages = append([]model.PageTarget(nil), base.Pages[:2]...)
		if base.Digest() == changed.Digest() {
			t.Error("digest did not change")
		}
	})

	t.Run("ignores credentials", func(t *testing.T) {
		t.Parallel()
		withCookie := base
		withCookie.Cookie = "session=secret"
		withCookie.Headers = map[string]string{"Authorization": "Bearer x"}
		if base.Digest() != withCookie.Digest() {
			t.Error("digest depends on credentials")
		}
	})
}
