package report

import (
	"time"

	"github.com/nao1215/pageaudit/internal/model"
)

// fixedTime is the clock used by test aggregators.
var fixedTime = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

// sampleRecords returns three records covering passed, failed and empty cases.
func sampleRecords() []model.PageAuditRecord {
	return []model.PageAuditRecord{
		{
			Title:      "Home",
			URL:        "https://www.forbes.com/advisor/au/",
			LoadTimeMs: 1834.5,
			TopResources: []model.ResourceSample{
				{Name: "https://www.forbes.com/advisor/au/wp-content/app.js", Duration: 412.3, InitiatorType: "script"},
				{Name: "https://www.forbes.com/advisor/au/wp-content/style.css", Duration: 120, InitiatorType: "link"},
			},
			Screenshot: "screenshots/home.png",
			Status:     model.StatusPassed,
			Checks:     []model.CheckResult{{Name: `heading "Smart"`, Passed: true}},
			AuditedAt:  fixedTime,
		},
		{
			Title:      `Credit Cards, "Best" $5`,
			URL:        "https://www.forbes.com/advisor/au/credit-cards/best-credit-cards/",
			LoadTimeMs: 2210,
			TopResources: []model.ResourceSample{
				{Name: "https://www.forbes.com/advisor/au/a,b.js", Duration: 98.7, InitiatorType: "script"},
			},
			Status:    model.StatusFailed,
			Checks:    []model.CheckResult{{Name: `button "Subscribe"`, Passed: false, Detail: "not visible"}},
			AuditedAt: fixedTime,
		},
		{
			Title:        "SuperFunds",
			URL:          "https://www.forbes.com/advisor/au/superannuation/",
			TopResources: []model.ResourceSample{},
			Status:       model.StatusFailed,
			Error:        "navigation timeout",
			AuditedAt:    fixedTime,
		},
	}
}

// newTestAggregator returns an aggregator holding sampleRecords.
func newTestAggregator() *Aggregator {
	agg := NewAggregator("au", WithLabel("AU"), WithRunID("run-1"), WithClock(func() time.Time { return fixedTime }))
	for _, r := range sampleRecords() {
		agg.Record(r)
	}
	return agg
}
