package config

import (
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/crypto/sha3"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/pageaudit/internal/model"
)

// DefaultHeadingSelector locates the heading checked against PageTarget.Heading.
const DefaultHeadingSelector = "h1"

// DefaultCaptchaSelectors match the interstitial challenges seen on Forbes pages.
var DefaultCaptchaSelectors = []string{
	`iframe[src*="captcha"]`,
	`div:has-text("Press & Hold")`,
	`div[class*="captcha"]`,
}

// DefaultElements are the header elements every Forbes Advisor page shows.
var DefaultElements = []model.ElementCheck{
	{Role: "link", Name: "Forbes Logo"},
	{Role: "button", Name: "Subscribe"},
	{Role: "link", Name: "forbes", Exact: true},
}

// Suite is a named list of pages audited together, plus the checks and
// request settings shared by those pages.
type Suite struct {
	// Name is the suite key, e.g. "au". Filled in by GetSuite.
	Name string `yaml:"-"`

	// Label is the display name used in report titles. Defaults to the
	// upper-cased Name.
	Label string `yaml:"label,omitempty"`

	// Pages are visited in order.
	Pages []model.PageTarget `yaml:"pages,omitempty"`

	// HeadingSelector locates the heading element. Defaults to "h1".
	HeadingSelector string `yaml:"headingSelector,omitempty"`

	// Elements must be visible on every page. A nil list inherits the
	// defaults; an explicit empty list disables element checks.
	Elements []model.ElementCheck `yaml:"elements,omitempty"`

	// CaptchaSelectors identify a CAPTCHA interstitial.
	CaptchaSelectors []string `yaml:"captchaSelectors,omitempty"`

	// ResourceFilter selects which resources are ranked.
	ResourceFilter model.ResourceFilter `yaml:"resourceFilter,omitempty"`

	// Cookie is sent with every request, "name=value; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .pageaudit configuration file.
type File struct {
	// Defaults apply to every suite unless the suite overrides them.
	// Defaults.Pages is ignored.
	Defaults Suite `yaml:"defaults,omitempty"`

	// Suites maps suite names to their definitions. A suite with the name
	// of a built-in suite replaces it.
	Suites map[string]Suite `yaml:"suites,omitempty"`
}

// SuiteNames returns the names of all built-in and configured suites, sorted.
func (cf *File) SuiteNames() []string {
	names := slices.Collect(maps.Keys(BuiltinSuites()))
	if cf != nil {
		for name := range cf.Suites {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names
}

// GetSuite returns the suite with the given name with file defaults and
// package defaults applied. Configured suites take precedence over built-in
// ones. cf may be nil.
func (cf *File) GetSuite(name string) (Suite, error) {
	var (
		suite    Suite
		found    bool
		defaults Suite
	)
	if cf != nil {
		suite, found = cf.Suites[name]
		defaults = cf.Defaults
	}
	if !found {
		suite, found = BuiltinSuites()[name]
	}
	if !found {
		return Suite{}, fmt.Errorf("%w: %q", ErrUnknownSuite, name)
	}

	suite = merge(defaults, suite)
	suite.Name = name
	if suite.Label == "" {
		suite.Label = strings.ToUpper(name)
	}
	if suite.HeadingSelector == "" {
		suite.HeadingSelector = DefaultHeadingSelector
	}
	if suite.Elements == nil {
		suite.Elements = slices.Clone(DefaultElements)
	}
	if len(suite.CaptchaSelectors) == 0 {
		suite.CaptchaSelectors = slices.Clone(DefaultCaptchaSelectors)
	}
	if len(suite.Pages) == 0 {
		return Suite{}, fmt.Errorf("%w: %q", ErrEmptySuite, name)
	}
	return suite, nil
}

// merge overlays the fields set in suite on top of defaults.
func merge(defaults, suite Suite) Suite {
	result := defaults
	result.Pages = suite.Pages
	result.Label = suite.Label

	if suite.HeadingSelector != "" {
		result.HeadingSelector = suite.HeadingSelector
	}
	if suite.Elements != nil {
		result.Elements = suite.Elements
	}
	if len(suite.CaptchaSelectors) > 0 {
		result.CaptchaSelectors = suite.CaptchaSelectors
	}
	if !suite.ResourceFilter.IsZero() {
		result.ResourceFilter = suite.ResourceFilter
	}
	if suite.Cookie != "" {
		result.Cookie = suite.Cookie
	}
	if len(defaults.Headers) > 0 || len(suite.Headers) > 0 {
		result.Headers = make(map[string]string, len(defaults.Headers)+len(suite.Headers))
		maps.Copy(result.Headers, defaults.Headers)
		maps.Copy(result.Headers, suite.Headers)
	}
	return result
}

// Digest returns a SHA3-256 fingerprint of the suite definition. Runs whose
// digests differ audited different pages or checks.
func (s Suite) Digest() string {
	// Cookie and header values are credentials and may rotate between runs.
	fingerprint := s
	fingerprint.Cookie = ""
	fingerprint.Headers = nil

	data, err := yaml.Marshal(fingerprint)
	if err != nil {
		return ""
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
