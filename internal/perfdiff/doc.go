// Package perfdiff compares two audit runs of the same suite.
//
// Pages are matched by URL. For each page the load time delta is computed
// and the ranked resources are matched by name to find resources that were
// added, dropped or retimed. Small deltas below a noise threshold count as
// unchanged. Page verdicts roll up into a run verdict: improved, regressed,
// mixed or unchanged.
package perfdiff
