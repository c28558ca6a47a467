// Package model defines the data structures shared by the pageaudit packages.
//
// This package contains the following main types:
//   - ResourceSample: one resource-timing observation from the browser
//   - PageTarget and ElementCheck: what to visit and what must be present
//   - PageAudit: the mutable working state of one page while it is audited
//   - PageAuditRecord: the immutable per-page result stored in a report
//   - AuditReport and RunSummary: the result of one suite run
//
// Models live in their own package so that browser, pipeline, report and
// database can share them without import cycles. All exported types
// serialize to JSON with stable field ordering.
package model
