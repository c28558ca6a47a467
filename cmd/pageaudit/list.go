package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/pageaudit/internal/config"
	"github.com/nao1215/pageaudit/internal/database"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available suites and recent runs",
		Long: `List prints the built-in suites and the suites defined in the
configuration file. With --runs it also prints the most recent runs stored
in the history database.

Examples:
  # List suites
  pageaudit list

  # List suites and the last 10 runs
  pageaudit list --runs 10`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pageaudit in current or home directory)")
	cmd.Flags().IntP("runs", "r", 0,
		"Also list this many recent runs from the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	runs, err := cmd.Flags().GetInt("runs")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	cf, err := loadSuiteFile(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	table := tablewriter.NewWriter(out)
	table.Header("Suite", "Label", "Pages", "Source")
	if err := table.Bulk(suiteRows(cf)); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if runs <= 0 {
		return nil
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	summaries, err := db.LatestRuns(cmd.Context(), "", runs)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	history := tablewriter.NewWriter(out)
	history.Header("Run", "Suite", "Started", "Duration", "Recorded", "Failed", "Skipped")
	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{
			s.RunID,
			s.Suite,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.Duration().Round(time.Second).String(),
			strconv.Itoa(s.Recorded),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Skipped),
		}
	}
	if err := history.Bulk(rows); err != nil {
		return err
	}
	return history.Render()
}

// suiteRows describes every known suite. A configured suite that cannot be
// used, e.g. one without pages, shows the reason in the source column.
func suiteRows(cf *config.File) [][]string {
	names := cf.SuiteNames()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		suite, err := cf.GetSuite(name)
		if err != nil {
			rows = append(rows, []string{name, "-", "0", err.Error()})
			continue
		}
		source := "built-in"
		if _, ok := cf.Suites[name]; ok {
			source = "config"
		}
		rows = append(rows, []string{name, suite.Label, strconv.Itoa(len(suite.Pages)), source})
	}
	return rows
}
