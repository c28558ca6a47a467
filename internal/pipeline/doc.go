// Package pipeline audits pages by running a fixed sequence of steps.
//
// A Pipeline runs Steps against one model.PageAudit: navigate, clear a
// CAPTCHA interstitial, assert the heading and common elements, collect
// timing metrics and save a screenshot. Assertion failures are recorded on
// the audit and do not stop later steps. A failed navigation or a CAPTCHA
// that never clears aborts the page.
//
// SuiteRunner visits the pages of one suite strictly in order, waiting a
// politeness delay between them, and hands every finished audit to a
// report.Aggregator. BatchRunner runs several suites with bounded
// concurrency; each suite keeps its own pages and aggregator.
package pipeline
