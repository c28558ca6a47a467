package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/pageaudit/internal/browser"
	"github.com/nao1215/pageaudit/internal/config"
	"github.com/nao1215/pageaudit/internal/database"
	"github.com/nao1215/pageaudit/internal/model"
	"github.com/nao1215/pageaudit/internal/pipeline"
	"github.com/nao1215/pageaudit/internal/report"
	"github.com/nao1215/pageaudit/internal/retry"
)

// errIncomplete is returned by run --strict when a page failed or was skipped.
var errIncomplete = errors.New("audit incomplete: some pages failed or were skipped")

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [suite...]",
		Short: "Audit the pages of one or more suites",
		Long: `Run visits every page of the given suites in order. For each page it
checks the heading and the common header elements, records the load time
and the slowest resources, and saves a full-page screenshot.

Pages that keep showing a CAPTCHA after the retry budget are skipped and
left out of the report. Other failures are recorded with status "failed".

Examples:
  # Audit the built-in Australian suite
  pageaudit run au

  # Audit both built-in suites into HTML reports
  pageaudit run au ca -f html -o reports/{suite}.html

  # Print a CSV report to stdout without a browser
  pageaudit run ca --driver http -f csv -o - --delay 0`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pageaudit in current or home directory)")
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Report format: json, csv, html, markdown or text")
	cmd.Flags().StringP("output", "o", "",
		`Report path, may contain {suite}; "-" writes to stdout (default: performance-metrics-{suite}.<ext>)`)
	cmd.Flags().String("screenshots", config.DefaultScreenshotDir,
		"Directory for page screenshots")
	cmd.Flags().IntP("top", "n", config.DefaultTopN,
		"Number of slowest resources kept per page")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each navigation and assertion")
	cmd.Flags().DurationP("delay", "d", config.DefaultPageDelay,
		"Pause between two pages of a suite")
	cmd.Flags().Int("captcha-retries", config.DefaultCaptchaRetries,
		"Number of CAPTCHA checks before a page is skipped")
	cmd.Flags().Duration("captcha-backoff", config.DefaultCaptchaBackoff,
		"Base wait between CAPTCHA checks (doubles, with jitter)")
	cmd.Flags().String("driver", config.DefaultDriver,
		"Browser driver: playwright or http")
	cmd.Flags().Bool("headed", false,
		"Show the browser window")
	cmd.Flags().Bool("install-browsers", false,
		"Download the Playwright driver and Chromium before running")
	cmd.Flags().String("user-agent", "",
		"User agent override (default: browser default, or a pageaudit agent for --driver http)")
	cmd.Flags().String("timing-source", config.DefaultTimingSource,
		"Resource timing source: performance or network")
	cmd.Flags().Bool("csv-per-page", false,
		"Also write one name,duration,initiatorType CSV per page")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of suites audited at the same time")
	cmd.Flags().Bool("no-db", false,
		"Do not store the run in the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().Bool("strict", false,
		"Exit with an error when a page failed or was skipped")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summaries, err := runSuites(ctx, cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	if strict {
		for _, s := range summaries {
			if s.Failed > 0 || s.Skipped > 0 {
				return errIncomplete
			}
		}
	}
	return nil
}

// buildRunConfig creates a Config from cobra command flags.
func buildRunConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.Output, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ScreenshotDir, err = flags.GetString("screenshots"); err != nil {
		return nil, err
	}
	if cfg.TopN, err = flags.GetInt("top"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.PageDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.CaptchaRetries, err = flags.GetInt("captcha-retries"); err != nil {
		return nil, err
	}
	if cfg.CaptchaBackoff, err = flags.GetDuration("captcha-backoff"); err != nil {
		return nil, err
	}
	if cfg.Driver, err = flags.GetString("driver"); err != nil {
		return nil, err
	}
	headed, err := flags.GetBool("headed")
	if err != nil {
		return nil, err
	}
	cfg.Headless = !headed
	if cfg.InstallBrowsers, err = flags.GetBool("install-browsers"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.TimingSource, err = flags.GetString("timing-source"); err != nil {
		return nil, err
	}
	if cfg.CSVPerPage, err = flags.GetBool("csv-per-page"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	cfg.Verbose, _ = cmd.Flags().GetBool("verbose") //nolint:errcheck // Persistent flag always exists
	cfg.LogJSON, _ = cmd.Flags().GetBool("log-json") //nolint:errcheck // Persistent flag always exists

	cfg.SuiteConfigs, err = loadSuiteFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	cfg.Suites = args
	return cfg, nil
}

// loadSuiteFile loads the suite file. An explicit path must exist; when no
// path is given and no file is found, only the built-in suites are available.
func loadSuiteFile(explicitPath string) (*config.File, error) {
	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", explicitPath)
		}
		return &config.File{Suites: make(map[string]config.Suite)}, nil
	}
	cf, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return cf, nil
}

// runSuites audits every suite in cfg and returns one summary per suite
// that produced a report, in completion order.
func runSuites(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) ([]model.RunSummary, error) {
	suites := make([]config.Suite, len(cfg.Suites))
	for i, name := range cfg.Suites {
		s, err := cfg.SuiteConfigs.GetSuite(name)
		if err != nil {
			return nil, err
		}
		suites[i] = s
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	var db *database.HistoryDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	driver, err := newDriver(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	// Reports written to stdout are the command output; progress goes to
	// stderr so the two do not interleave.
	progressOut := stdout
	if cfg.Output == report.Stdout {
		progressOut = os.Stderr
	}
	progress := newProgressPrinter(progressOut)

	var (
		mu        sync.Mutex
		summaries []model.RunSummary
	)
	runOne := func(ctx context.Context, i int, _ string) error {
		summary, err := runSuite(ctx, cfg, suites[i], format, driver, db, progress, stdout, logger)
		if summary != nil {
			mu.Lock()
			summaries = append(summaries, *summary)
			mu.Unlock()
		}
		return err
	}

	batch := pipeline.NewBatchRunner(runOne,
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.Concurrency),
	)
	if err := batch.Run(ctx, cfg.Suites); err != nil {
		return summaries, err
	}
	return summaries, nil
}

// runSuite audits one suite, writes its report and stores the run. The
// report is written even when ctx is cancelled part way through.
func runSuite(
	ctx context.Context,
	cfg *config.Config,
	suite config.Suite,
	format report.Format,
	driver browser.Driver,
	db *database.HistoryDB,
	progress *progressPrinter,
	stdout io.Writer,
	logger *slog.Logger,
) (*model.RunSummary, error) {
	runID := uuid.NewString()
	logger = logger.With("suite", suite.Name, "run", runID)

	agg := report.NewAggregator(suite.Name,
		report.WithLabel(suite.Label),
		report.WithRunID(runID),
		report.WithStdout(stdout),
	)
	runner := pipeline.NewSuiteRunner(driver, suite,
		pipeline.WithScreenshotDir(cfg.ScreenshotDir),
		pipeline.WithTopN(cfg.TopN),
		pipeline.WithPageDelay(cfg.PageDelay),
		pipeline.WithCaptchaPolicy(retry.NewPolicy(
			retry.WithMaxAttempts(cfg.CaptchaRetries),
			retry.WithBackoff(cfg.CaptchaBackoff, retry.DefaultMaxDelay),
		)),
		pipeline.WithRunnerLogger(logger),
		pipeline.WithProgress(progress.Event),
	)

	logger.Info("starting suite", "pages", len(suite.Pages), "driver", cfg.Driver)
	runErr := runner.Run(ctx, agg)
	if runErr != nil {
		logger.Warn("suite interrupted", "recorded", agg.Len(), "error", runErr)
	}

	dest := cfg.OutputPath(suite.Name)
	if err := agg.Flush(format, dest); err != nil {
		return nil, err
	}
	if cfg.CSVPerPage {
		dir := "."
		if dest != report.Stdout {
			dir = filepath.Dir(dest)
		}
		paths, err := agg.FlushResourceCSVs(dir)
		if err != nil {
			return nil, err
		}
		logger.Debug("resource csv files written", "count", len(paths), "dir", dir)
	}

	result := agg.Report()
	digest := suite.Digest()
	if db != nil {
		// The run is stored even after an interrupt.
		if err := db.SaveRun(context.WithoutCancel(ctx), result, digest); err != nil {
			logger.Error("failed to save run", "error", err)
		}
	}

	summary := result.Summary(digest)
	if dest == report.Stdout {
		dest = ""
	}
	progress.Summary(summary, dest)
	return &summary, runErr
}

// newDriver creates the browser driver selected in cfg.
func newDriver(cfg *config.Config, logger *slog.Logger) (browser.Driver, error) {
	if cfg.Driver == config.DriverHTTP {
		ua := cfg.UserAgent
		if ua == "" {
			ua = config.DefaultUserAgent
		}
		return browser.NewStaticDriver(browser.StaticOptions{
			Timeout:   cfg.Timeout,
			UserAgent: ua,
			Logger:    logger,
		}), nil
	}

	driver, err := browser.NewPlaywrightDriver(browser.PlaywrightOptions{
		Headless:       cfg.Headless,
		Install:        cfg.InstallBrowsers,
		DriverDir:      filepath.Join(config.XDGCacheDir(), "playwright-driver"),
		Timeout:        cfg.Timeout,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		UserAgent:      cfg.UserAgent,
		TimingSource:   cfg.TimingSource,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start browser (try --install-browsers or --driver http): %w", err)
	}
	return driver, nil
}
