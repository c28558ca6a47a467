package perfdiff

import (
	"fmt"
	"math"
	"strings"

	"github.com/nao1215/pageaudit/internal/model"
)

// Verdict classifies a change.
type Verdict string

// Verdicts.
const (
	VerdictImproved  Verdict = "improved"
	VerdictRegressed Verdict = "regressed"
	VerdictMixed     Verdict = "mixed"
	VerdictUnchanged Verdict = "unchanged"
)

// Default noise thresholds. A delta must exceed both to count.
const (
	DefaultMinDeltaMs  = 50.0
	DefaultMinDeltaPct = 10.0
)

// MetricDiff holds the before/after comparison of one value in ms.
type MetricDiff struct {
	Before float64 `json:"before"`
	After  float64 `json:"after"`
	Delta  float64 `json:"delta"`

	// Pct is the relative change, "n/a" without a baseline.
	Pct string `json:"pct"`

	Verdict Verdict `json:"verdict"`
}

// ResourceChange is a resource present in one or both runs.
type ResourceChange struct {
	Name          string     `json:"name"`
	InitiatorType string     `json:"initiatorType"`
	Duration      MetricDiff `json:"duration"`
}

// ResourceDiff groups ranked resources by how they changed.
type ResourceDiff struct {
	Added   []ResourceChange `json:"added,omitempty"`
	Removed []ResourceChange `json:"removed,omitempty"`
	Retimed []ResourceChange `json:"retimed,omitempty"`
}

// PageDiff compares one page across two runs.
type PageDiff struct {
	Title        string       `json:"title"`
	URL          string       `json:"url"`
	LoadTime     MetricDiff   `json:"loadTime"`
	BeforeStatus model.Status `json:"beforeStatus"`
	AfterStatus  model.Status `json:"afterStatus"`
	Resources    ResourceDiff `json:"resources"`
}

// StatusChanged reports whether the page passed in one run and failed in the other.
func (p PageDiff) StatusChanged() bool {
	return p.BeforeStatus != p.AfterStatus
}

// RunDiff compares two runs.
type RunDiff struct {
	Suite     string `json:"suite"`
	BaseRunID string `json:"baseRunId"`
	HeadRunID string `json:"headRunId"`

	// Pages holds pages present in both runs, in head order.
	Pages []PageDiff `json:"pages"`

	// OnlyInBase and OnlyInHead list unmatched pages.
	OnlyInBase []model.PageTarget `json:"onlyInBase,omitempty"`
	OnlyInHead []model.PageTarget `json:"onlyInHead,omitempty"`

	Verdict Verdict `json:"verdict"`
	Summary string  `json:"summary"`
}

// Comparer computes diffs with configurable noise thresholds.
type Comparer struct {
	minDeltaMs  float64
	minDeltaPct float64
}

// Option configures a Comparer.
type Option func(*Comparer)

// WithThreshold sets the noise thresholds. A change counts only when its
// absolute delta exceeds ms and its relative delta exceeds pct percent.
func WithThreshold(ms, pct float64) Option {
	return func(c *Comparer) {
		c.minDeltaMs = max(ms, 0)
		c.minDeltaPct = max(pct, 0)
	}
}

// NewComparer creates a Comparer with default thresholds.
func NewComparer(opts ...Option) *Comparer {
	c := &Comparer{minDeltaMs: DefaultMinDeltaMs, minDeltaPct: DefaultMinDeltaPct}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compare diffs head against base.
func (c *Comparer) Compare(base, head *model.AuditReport) RunDiff {
	diff := RunDiff{
		Suite:     head.Suite,
		BaseRunID: base.RunID,
		HeadRunID: head.RunID,
		Pages:     make([]PageDiff, 0, len(head.Records)),
	}

	baseByURL := make(map[string]model.PageAuditRecord, len(base.Records))
	for _, rec := range base.Records {
		if _, dup := baseByURL[rec.URL]; !dup {
			baseByURL[rec.URL] = rec
		}
	}

	matched := make(map[string]bool, len(head.Records))
	for _, after := range head.Records {
		before, ok := baseByURL[after.URL]
		if !ok {
			diff.OnlyInHead = append(diff.OnlyInHead, model.PageTarget{Title: after.Title, URL: after.URL})
			continue
		}
		if matched[after.URL] {
			continue
		}
		matched[after.URL] = true
		diff.Pages = append(diff.Pages, c.comparePage(before, after))
	}
	for _, rec := range base.Records {
		if !matched[rec.URL] {
			diff.OnlyInBase = append(diff.OnlyInBase, model.PageTarget{Title: rec.Title, URL: rec.URL})
			matched[rec.URL] = true
		}
	}

	verdicts := make([]Verdict, len(diff.Pages))
	for i, p := range diff.Pages {
		verdicts[i] = p.LoadTime.Verdict
	}
	diff.Verdict = combine(verdicts)
	diff.Summary = summarize(diff)
	return diff
}

// Compare diffs head against base with default thresholds.
func Compare(base, head *model.AuditReport) RunDiff {
	return NewComparer().Compare(base, head)
}

func (c *Comparer) comparePage(before, after model.PageAuditRecord) PageDiff {
	return PageDiff{
		Title:        after.Title,
		URL:          after.URL,
		LoadTime:     c.metric(before.LoadTimeMs, after.LoadTimeMs),
		BeforeStatus: before.Status,
		AfterStatus:  after.Status,
		Resources:    c.resources(before.TopResources, after.TopResources),
	}
}

// metric builds a MetricDiff. Lower is better.
func (c *Comparer) metric(before, after float64) MetricDiff {
	md := MetricDiff{
		Before:  round1(before),
		After:   round1(after),
		Delta:   round1(after - before),
		Pct:     "n/a",
		Verdict: VerdictUnchanged,
	}
	if before == 0 {
		return md
	}
	pct := (after - before) / before * 100
	md.Pct = formatPct(pct)
	if math.Abs(md.Delta) > c.minDeltaMs && math.Abs(pct) > c.minDeltaPct {
		if md.Delta < 0 {
			md.Verdict = VerdictImproved
		} else {
			md.Verdict = VerdictRegressed
		}
	}
	return md
}

func (c *Comparer) resources(before, after []model.ResourceSample) ResourceDiff {
	var diff ResourceDiff
	beforeByName := make(map[string]model.ResourceSample, len(before))
	for _, s := range before {
		if _, dup := beforeByName[s.Name]; !dup {
			beforeByName[s.Name] = s
		}
	}
	afterByName := make(map[string]bool, len(after))

	for _, s := range after {
		if afterByName[s.Name] {
			continue
		}
		afterByName[s.Name] = true
		prev, ok := beforeByName[s.Name]
		if !ok {
			diff.Added = append(diff.Added, ResourceChange{
				Name:          s.Name,
				InitiatorType: s.InitiatorType,
				Duration:      MetricDiff{After: s.Duration, Delta: s.Duration, Pct: "n/a", Verdict: VerdictRegressed},
			})
			continue
		}
		md := c.metric(prev.Duration, s.Duration)
		if md.Verdict != VerdictUnchanged {
			diff.Retimed = append(diff.Retimed, ResourceChange{Name: s.Name, InitiatorType: s.InitiatorType, Duration: md})
		}
	}
	for _, s := range before {
		if afterByName[s.Name] {
			continue
		}
		afterByName[s.Name] = true
		diff.Removed = append(diff.Removed, ResourceChange{
			Name:          s.Name,
			InitiatorType: s.InitiatorType,
			Duration:      MetricDiff{Before: s.Duration, Delta: -s.Duration, Pct: "n/a", Verdict: VerdictImproved},
		})
	}
	return diff
}

// combine derives an overall verdict from individual ones.
func combine(verdicts []Verdict) Verdict {
	improved, regressed := 0, 0
	for _, v := range verdicts {
		switch v {
		case VerdictImproved:
			improved++
		case VerdictRegressed:
			regressed++
		case VerdictMixed:
			improved++
			regressed++
		}
	}
	switch {
	case improved > 0 && regressed == 0:
		return VerdictImproved
	case regressed > 0 && improved == 0:
		return VerdictRegressed
	case improved > 0 && regressed > 0:
		return VerdictMixed
	default:
		return VerdictUnchanged
	}
}

// summarize produces a one-line description of d.
func summarize(d RunDiff) string {
	if len(d.Pages) == 0 {
		return "No pages in common between the two runs."
	}

	var improved, regressed int
	var total float64
	for _, p := range d.Pages {
		total += p.LoadTime.Delta
		switch p.LoadTime.Verdict {
		case VerdictImproved:
			improved++
		case VerdictRegressed:
			regressed++
		}
	}
	avg := round1(total / float64(len(d.Pages)))

	parts := []string{fmt.Sprintf("Load time %s across %d page(s)", d.Verdict, len(d.Pages))}
	if improved > 0 {
		parts = append(parts, fmt.Sprintf("%d faster", improved))
	}
	if regressed > 0 {
		parts = append(parts, fmt.Sprintf("%d slower", regressed))
	}
	parts = append(parts, fmt.Sprintf("average delta %+.1f ms", avg))
	return strings.Join(parts, ", ") + "."
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatPct(pct float64) string {
	return fmt.Sprintf("%+.0f%%", pct)
}
