// Package report collects page audit records and writes them out.
//
// The Aggregator receives one record per audited page, in visit order, and
// writes the whole batch once at the end of a run with Flush. Supported
// output formats:
//   - JSON: array of records, for tooling
//   - CSV: one row per ranked resource, for spreadsheets
//   - HTML: self-contained page with links and screenshots
//   - Markdown: GitHub-flavored summary built with nao1215/markdown
//   - Text: terminal tables built with olekukonko/tablewriter
package report
