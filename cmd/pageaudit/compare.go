package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/pageaudit/internal/config"
	"github.com/nao1215/pageaudit/internal/database"
	"github.com/nao1215/pageaudit/internal/model"
	"github.com/nao1215/pageaudit/internal/perfdiff"
)

// errNotEnoughRuns is returned when a suite has fewer than two stored runs.
var errNotEnoughRuns = errors.New("at least two stored runs are needed to compare")

// Compare output formats.
const (
	compareText     = "text"
	compareMarkdown = "markdown"
	compareJSON     = "json"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <suite>",
		Short: "Compare two stored runs of a suite",
		Long: `Compare loads two runs of a suite from the history database and shows
how page load times and the slowest resources changed between them.

By default the two most recent runs are compared. A change counts only
when it exceeds both the millisecond and the percentage threshold.

Examples:
  # Compare the last two runs of the AU suite
  pageaudit compare au

  # Compare two specific runs as Markdown
  pageaudit compare au --base 1b4e... --head 9f0c... -f markdown

  # Show the stored load times of one page
  pageaudit compare ca --page https://www.forbes.com/advisor/ca/`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().String("base", "",
		"Run ID of the older run (default: second most recent)")
	cmd.Flags().String("head", "",
		"Run ID of the newer run (default: most recent)")
	cmd.Flags().StringP("format", "f", compareText,
		"Output format: text, markdown or json")
	cmd.Flags().Float64("min-delta-ms", perfdiff.DefaultMinDeltaMs,
		"Smallest change in milliseconds that counts")
	cmd.Flags().Float64("min-delta-pct", perfdiff.DefaultMinDeltaPct,
		"Smallest change in percent that counts")
	cmd.Flags().String("page", "",
		"Print the stored load times of this page URL instead of a comparison")
	cmd.Flags().IntP("limit", "l", 20,
		"Number of entries printed with --page")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	suite := args[0]
	flags := cmd.Flags()

	baseID, err := flags.GetString("base")
	if err != nil {
		return err
	}
	headID, err := flags.GetString("head")
	if err != nil {
		return err
	}
	format, err := flags.GetString("format")
	if err != nil {
		return err
	}
	if format != compareText && format != compareMarkdown && format != compareJSON {
		return fmt.Errorf("unknown compare format %q (use text, markdown or json)", format)
	}
	minMs, err := flags.GetFloat64("min-delta-ms")
	if err != nil {
		return err
	}
	minPct, err := flags.GetFloat64("min-delta-pct")
	if err != nil {
		return err
	}
	pageURL, err := flags.GetString("page")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if pageURL != "" {
		loads, err := db.PageHistory(ctx, suite, pageURL, limit)
		if err != nil {
			return err
		}
		return writePageHistory(out, pageURL, loads)
	}

	if baseID == "" || headID == "" {
		latest, err := db.LatestRuns(ctx, suite, 2)
		if err != nil {
			return err
		}
		if len(latest) < 2 {
			return fmt.Errorf("%w: suite %q has %d", errNotEnoughRuns, suite, len(latest))
		}
		if latest[0].ConfigDigest != latest[1].ConfigDigest {
			logger.Warn("suite definition changed between the compared runs", "suite", suite)
		}
		if headID == "" {
			headID = latest[0].RunID
		}
		if baseID == "" {
			baseID = latest[1].RunID
		}
	}

	base, err := loadRun(cmd, db, suite, baseID)
	if err != nil {
		return err
	}
	head, err := loadRun(cmd, db, suite, headID)
	if err != nil {
		return err
	}

	diff := perfdiff.NewComparer(perfdiff.WithThreshold(minMs, minPct)).Compare(base, head)
	switch format {
	case compareMarkdown:
		return perfdiff.WriteMarkdown(out, diff)
	case compareJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(diff)
	default:
		return perfdiff.WriteText(out, diff)
	}
}

// loadRun fetches a stored run and checks that it belongs to suite.
func loadRun(cmd *cobra.Command, db *database.HistoryDB, suite, runID string) (*model.AuditReport, error) {
	run, err := db.GetRun(cmd.Context(), runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if run.Suite != suite {
		return nil, fmt.Errorf("run %s belongs to suite %q, not %q", runID, run.Suite, suite)
	}
	return run, nil
}

// writePageHistory prints stored load times of one page, newest first.
func writePageHistory(w io.Writer, pageURL string, loads []database.PageLoad) error {
	if len(loads) == 0 {
		_, err := fmt.Fprintf(w, "No stored audits of %s\n", pageURL)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n\n", pageURL); err != nil {
		return err
	}

	rows := make([][]string, len(loads))
	for i, l := range loads {
		rows[i] = []string{
			l.AuditedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(l.LoadTimeMs, 'f', 1, 64) + " ms",
			l.Status.String(),
			l.RunID,
		}
	}
	table := tablewriter.NewWriter(w)
	table.Header("Audited", "Load Time", "Status", "Run")
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
