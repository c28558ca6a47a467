package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// SuiteFunc runs one suite. index is the suite's position in the batch.
type SuiteFunc func(ctx context.Context, index int, suite string) error

// BatchRunner runs several suites with a concurrency limit. Every suite
// owns its own pages and aggregator, so running them side by side does not
// change the order within a suite.
type BatchRunner struct {
	run         SuiteFunc
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets the logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithConcurrency sets how many suites run at once. Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchRunner creates a BatchRunner calling run for each suite.
func NewBatchRunner(run SuiteFunc, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{run: run, concurrency: 1}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Run runs every suite. The first error cancels the suites that have not
// finished and is returned.
func (b *BatchRunner) Run(ctx context.Context, suites []string) error {
	b.logger.Info("starting suites", "total", len(suites), "concurrency", b.concurrency)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, suite := range suites {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b.logger.Info("running suite", "suite", suite, "index", i+1, "total", len(suites))
			if err := b.run(ctx, i, suite); err != nil {
				b.logger.Warn("suite failed", "suite", suite, "error", err)
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	b.logger.Info("suites complete", "total", len(suites), "elapsed", time.Since(start))
	return err
}
