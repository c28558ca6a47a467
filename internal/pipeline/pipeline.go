package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/pageaudit/internal/model"
)

var (
	// ErrAbortPage stops the remaining steps of a page. The page is still
	// recorded as failed.
	ErrAbortPage = errors.New("page audit aborted")

	// ErrCaptchaBlocked stops the remaining steps of a page whose CAPTCHA
	// did not clear. The page is skipped rather than recorded.
	ErrCaptchaBlocked = errors.New("captcha did not clear")
)

// Step is one stage of a page audit.
type Step interface {
	// Do runs the step. Assertion outcomes are recorded on audit and do
	// not produce an error; returning ErrAbortPage or ErrCaptchaBlocked
	// stops the pipeline.
	Do(ctx context.Context, audit *model.PageAudit) error

	// Name returns the step's name for logging and check results.
	Name() string
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps running after a step returns an ordinary error.
	// Abort sentinels and context cancellation always stop the pipeline.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError makes ordinary step errors become failed checks
// instead of stopping the page.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against audit. It returns the error that stopped
// the page, or nil when all steps ran. Whatever stopped the page is also
// stored in audit.Err.
func (p *Pipeline) Execute(ctx context.Context, audit *model.PageAudit) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("audit cancelled", "step", step.Name(), "url", audit.Target.URL, "reason", err)
			audit.Err = err
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "url", audit.Target.URL)

		err := step.Do(ctx, audit)
		audit.PerformedSteps = append(audit.PerformedSteps, step.Name())
		if err == nil {
			continue
		}

		if isFatal(ctx, err) || !p.continueOnError {
			p.logger.Warn("page stopped", "step", step.Name(), "url", audit.Target.URL, "error", err)
			audit.Err = err
			return err
		}

		p.logger.Warn("step failed", "step", step.Name(), "url", audit.Target.URL, "error", err)
		audit.AddCheck(step.Name(), err)
	}
	return nil
}

// isFatal reports whether err must stop the pipeline regardless of options.
func isFatal(ctx context.Context, err error) bool {
	return errors.Is(err, ErrAbortPage) ||
		errors.Is(err, ErrCaptchaBlocked) ||
		ctx.Err() != nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
