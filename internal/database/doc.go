// Package database stores audit run history in SQLite.
//
// Every suite run is saved as one row in runs, holding the summary counts
// and the complete report as JSON, plus one row per recorded page in
// page_audits. The compare command reads two runs back to diff load times.
//
// The database lives in a single file opened through modernc.org/sqlite,
// which needs no cgo, with WAL journaling enabled by default.
package database
