package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pageaudit/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "pageaudit.db"

// HistoryDB stores audit runs.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run an audit first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		suite TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		recorded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		config_digest TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_suite ON runs(suite, started_at);

	CREATE TABLE IF NOT EXISTS page_audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		suite TEXT NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		load_time_ms REAL NOT NULL,
		status TEXT NOT NULL,
		audited_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_page_audits_run ON page_audits(run_id);
	CREATE INDEX IF NOT EXISTS idx_page_audits_url ON page_audits(suite, url, audited_at);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a finished suite run. digest identifies the suite
// definition the run used.
func (h *HistoryDB) SaveRun(ctx context.Context, report *model.AuditReport, digest string) (err error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	summary := report.Summary(digest)

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (run_id, suite, started_at, finished_at, recorded, failed, skipped, config_digest, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		summary.RunID,
		summary.Suite,
		formatTimestamp(summary.StartedAt),
		formatTimestamp(summary.FinishedAt),
		summary.Recorded,
		summary.Failed,
		summary.Skipped,
		summary.ConfigDigest,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", summary.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO page_audits (run_id, suite, position, title, url, load_time_ms, status, audited_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range report.Records {
		if _, err = stmt.ExecContext(ctx,
			summary.RunID,
			summary.Suite,
			i,
			rec.Title,
			rec.URL,
			rec.LoadTimeMs,
			rec.Status.String(),
			formatTimestamp(rec.AuditedAt),
		); err != nil {
			return fmt.Errorf("failed to save page %s: %w", rec.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", summary.RunID, err)
	}
	return nil
}

// LatestRuns returns up to limit run summaries of suite, newest first.
// An empty suite lists every suite.
func (h *HistoryDB) LatestRuns(ctx context.Context, suite string, limit int) ([]model.RunSummary, error) {
	query := `
	SELECT run_id, suite, started_at, finished_at, recorded, failed, skipped, config_digest
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 2)
	if suite != "" {
		query += " AND suite = ?"
		args = append(args, suite)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []model.RunSummary
	for rows.Next() {
		var (
			s          model.RunSummary
			started    string
			finished   string
			digestNull sql.NullString
		)
		if err := rows.Scan(&s.RunID, &s.Suite, &started, &finished, &s.Recorded, &s.Failed, &s.Skipped, &digestNull); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.StartedAt = parseTimestamp(started)
		s.FinishedAt = parseTimestamp(finished)
		s.ConfigDigest = digestNull.String
		results = append(results, s)
	}
	return results, rows.Err()
}

// GetRun returns the stored report of runID, or nil when it does not exist.
func (h *HistoryDB) GetRun(ctx context.Context, runID string) (*model.AuditReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE run_id = ?`, runID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}

	var report model.AuditReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run %s: %w", runID, err)
	}
	return &report, nil
}

// ListSuites returns every suite that has stored runs.
func (h *HistoryDB) ListSuites(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT suite FROM runs ORDER BY suite`)
	if err != nil {
		return nil, fmt.Errorf("failed to list suites: %w", err)
	}
	defer rows.Close()

	var suites []string
	for rows.Next() {
		var suite string
		if err := rows.Scan(&suite); err != nil {
			return nil, fmt.Errorf("failed to scan suite: %w", err)
		}
		suites = append(suites, suite)
	}
	return suites, rows.Err()
}

// PageLoad is one stored load time of a page.
type PageLoad struct {
	RunID      string
	AuditedAt  time.Time
	LoadTimeMs float64
	Status     model.Status
}

// PageHistory returns up to limit stored load times of url in suite,
// newest first.
func (h *HistoryDB) PageHistory(ctx context.Context, suite, url string, limit int) ([]PageLoad, error) {
	query := `
	SELECT run_id, audited_at, load_time_ms, status
	FROM page_audits
	WHERE suite = ? AND url = ?
	ORDER BY audited_at DESC
	`
	args := []any{suite, url}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query page history: %w", err)
	}
	defer rows.Close()

	var results []PageLoad
	for rows.Next() {
		var (
			p       PageLoad
			audited string
			status  string
		)
		if err := rows.Scan(&p.RunID, &audited, &p.LoadTimeMs, &status); err != nil {
			return nil, fmt.Errorf("failed to scan page history: %w", err)
		}
		p.AuditedAt = parseTimestamp(audited)
		if p.Status, err = model.ParseStatus(status); err != nil {
			p.Status = model.StatusFailed
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// timestampLayout has a fixed width so lexical order is chronological.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats SQLite may return.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
