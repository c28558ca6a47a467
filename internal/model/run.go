package model

import "time"

// AuditReport is the result of running one suite.
type AuditReport struct {
	// Suite is the suite name, e.g. "au".
	Suite string `json:"suite"`

	// RunID uniquely identifies the run.
	RunID string `json:"runId"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Records holds one entry per recorded page in visit order.
	Records []PageAuditRecord `json:"records"`

	// Skipped lists pages left out because a CAPTCHA did not clear.
	Skipped []PageTarget `json:"skipped,omitempty"`
}

// Summary condenses the report for history storage.
func (r *AuditReport) Summary(digest string) RunSummary {
	s := RunSummary{
		RunID:        r.RunID,
		Suite:        r.Suite,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Recorded:     len(r.Records),
		Skipped:      len(r.Skipped),
		ConfigDigest: digest,
	}
	for _, rec := range r.Records {
		if rec.Status == StatusFailed {
			s.Failed++
		}
	}
	return s
}

// RunSummary is the persisted header of a suite run.
type RunSummary struct {
	RunID        string    `json:"runId"`
	Suite        string    `json:"suite"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	Recorded     int       `json:"recorded"`
	Failed       int       `json:"failed"`
	Skipped      int       `json:"skipped"`
	ConfigDigest string    `json:"configDigest,omitempty"`
}

// Duration returns the wall-clock length of the run.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
