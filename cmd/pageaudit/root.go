package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/pageaudit/internal/log"
)

// NewRootCmd creates the root command for pageaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pageaudit",
		Short: "Audit page load performance and common elements of marketing pages",
		Long: `pageaudit visits a fixed list of pages in a headless browser, asserts
the expected heading and header elements, captures load time and the
slowest resources from the browser performance API, takes full-page
screenshots, and writes the results as JSON, CSV, HTML, Markdown or text.

Built-in suites "au" and "ca" cover the Forbes Advisor Australia and
Canada pages. More suites can be defined in a .pageaudit file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the logger selected by the global flags and installs
// it as the slog default.
func newLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose") //nolint:errcheck // Persistent flag always exists
	asJSON, _ := cmd.Flags().GetBool("log-json") //nolint:errcheck // Persistent flag always exists

	logger := log.New(w, log.Options{Verbose: verbose, JSON: asJSON})
	slog.SetDefault(logger)
	return logger
}
