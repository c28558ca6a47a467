package model

import "fmt"

// PageTarget is one page a suite visits.
type PageTarget struct {
	// Title is the human-readable page name used in reports and screenshot names.
	Title string `json:"title" yaml:"title"`

	// URL is the absolute address to navigate to.
	URL string `json:"url" yaml:"url"`

	// Heading is the substring the page's main heading must contain.
	// An empty Heading disables the heading assertion.
	Heading string `json:"heading,omitempty" yaml:"heading,omitempty"`
}

// String returns "Title (URL)".
func (t PageTarget) String() string {
	return fmt.Sprintf("%s (%s)", t.Title, t.URL)
}

// ElementCheck describes an element that must be visible on every page of a suite.
// Either Role+Name (accessible role lookup) or Selector (CSS) is used.
type ElementCheck struct {
	// Role is an ARIA role such as "link" or "button".
	Role string `json:"role,omitempty" yaml:"role,omitempty"`

	// Name is the accessible name matched against the element.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Exact requires the accessible name to match exactly instead of as a substring.
	Exact bool `json:"exact,omitempty" yaml:"exact,omitempty"`

	// Selector is a CSS selector. When set, Role and Name are ignored.
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
}

// Label returns a short description used in check results and logs.
func (c ElementCheck) Label() string {
	if c.Selector != "" {
		return "selector " + c.Selector
	}
	if c.Exact {
		return fmt.Sprintf("%s %q (exact)", c.Role, c.Name)
	}
	return fmt.Sprintf("%s %q", c.Role, c.Name)
}

// ResourceFilter is the declarative form of the resource predicate applied
// before ranking resource timings. Empty fields are not applied; an empty
// filter keeps every well-formed URL.
type ResourceFilter struct {
	// HostContains keeps resources whose hostname contains the value.
	HostContains string `json:"hostContains,omitempty" yaml:"hostContains,omitempty"`

	// URLContains keeps resources whose host+path contains the value.
	URLContains string `json:"urlContains,omitempty" yaml:"urlContains,omitempty"`

	// PathPrefix keeps resources whose path starts with the value.
	PathPrefix string `json:"pathPrefix,omitempty" yaml:"pathPrefix,omitempty"`

	// SameSite keeps resources on the same registrable domain as the page.
	SameSite bool `json:"sameSite,omitempty" yaml:"sameSite,omitempty"`
}

// IsZero reports whether no criterion is set.
func (f ResourceFilter) IsZero() bool {
	return f == ResourceFilter{}
}
