package model

import (
	"slices"
	"time"
)

// CheckResult is the outcome of one assertion made against a page.
type CheckResult struct {
	// Name identifies the check, e.g. `heading "Investing"` or `link "Forbes Logo"`.
	Name string `json:"name"`

	// Passed is true when the assertion held.
	Passed bool `json:"passed"`

	// Detail carries the failure message. Empty for passed checks.
	Detail string `json:"detail,omitempty"`
}

// PageAuditRecord is the per-page result appended to a report.
// Field order is the serialized order in every output format.
type PageAuditRecord struct {
	// Title is the page title: the configured title, or the observed
	// document title when none was configured.
	Title string `json:"title"`

	// URL is the audited address.
	URL string `json:"url"`

	// LoadTimeMs is the navigation load time in milliseconds.
	LoadTimeMs float64 `json:"loadTimeMs"`

	// TopResources holds the slowest matching resources, slowest first.
	TopResources []ResourceSample `json:"topResources"`

	// Screenshot is the path of the full-page screenshot, if one was taken.
	Screenshot string `json:"screenshot,omitempty"`

	// Status is passed or failed.
	Status Status `json:"status"`

	// Checks lists every heading and element assertion made.
	Checks []CheckResult `json:"checks,omitempty"`

	// Error is the error that aborted the page, if any.
	Error string `json:"error,omitempty"`

	// AuditedAt is when the page audit started.
	AuditedAt time.Time `json:"auditedAt"`
}

// Clone returns a deep copy of r.
func (r PageAuditRecord) Clone() PageAuditRecord {
	r.TopResources = cloneOrEmpty(r.TopResources)
	r.Checks = slices.Clone(r.Checks)
	return r
}

// FailedChecks returns the checks that did not pass.
func (r PageAuditRecord) FailedChecks() []CheckResult {
	var failed []CheckResult
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// cloneOrEmpty copies s and never returns nil, so that records always
// serialize topResources as an array.
func cloneOrEmpty(s []ResourceSample) []ResourceSample {
	out := make([]ResourceSample, len(s))
	copy(out, s)
	return out
}
