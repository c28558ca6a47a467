package model

import "time"

// PageAudit is the mutable working state for one page while it moves
// through the audit pipeline. Steps fill it in; Record freezes it.
type PageAudit struct {
	// Target is the page being audited.
	Target PageTarget

	// StartedAt is when the audit began.
	StartedAt time.Time

	// ObservedTitle is the document title reported by the browser.
	ObservedTitle string

	// LoadTimeMs is the navigation load time in milliseconds.
	LoadTimeMs float64

	// Samples holds every raw resource-timing sample observed.
	Samples []ResourceSample

	// TopResources is the ranked, filtered subset of Samples.
	TopResources []ResourceSample

	// Screenshot is the path of the saved screenshot.
	Screenshot string

	// Checks collects heading and element assertion results.
	Checks []CheckResult

	// CaptchaBlocked is set when a CAPTCHA interstitial did not clear.
	CaptchaBlocked bool

	// Err is the error that stopped the audit early.
	Err error

	// PerformedSteps records the names of the pipeline steps that ran.
	PerformedSteps []string
}

// NewPageAudit starts the audit of target.
func NewPageAudit(target PageTarget) *PageAudit {
	return &PageAudit{
		Target:    target,
		StartedAt: time.Now(),
	}
}

// AddCheck appends an assertion outcome. A nil err means the check passed.
func (a *PageAudit) AddCheck(name string, err error) {
	c := CheckResult{Name: name, Passed: err == nil}
	if err != nil {
		c.Detail = err.Error()
	}
	a.Checks = append(a.Checks, c)
}

// Failed reports whether the audit errored or any check failed.
func (a *PageAudit) Failed() bool {
	if a.Err != nil {
		return true
	}
	for _, c := range a.Checks {
		if !c.Passed {
			return true
		}
	}
	return false
}

// Title returns the configured title, falling back to the observed one.
func (a *PageAudit) Title() string {
	if a.Target.Title != "" {
		return a.Target.Title
	}
	return a.ObservedTitle
}

// Record builds the immutable record for this audit. Later changes to a
// do not affect the returned value.
func (a *PageAudit) Record() PageAuditRecord {
	rec := PageAuditRecord{
		Title:        a.Title(),
		URL:          a.Target.URL,
		LoadTimeMs:   a.LoadTimeMs,
		TopResources: a.TopResources,
		Screenshot:   a.Screenshot,
		Status:       StatusPassed,
		Checks:       a.Checks,
		AuditedAt:    a.StartedAt,
	}
	if a.Failed() {
		rec.Status = StatusFailed
	}
	if a.Err != nil {
		rec.Error = a.Err.Error()
	}
	return rec.Clone()
}
