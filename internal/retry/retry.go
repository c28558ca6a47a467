package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultJitter      = 0.3
)

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of times the condition is evaluated.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt. It doubles
	// after each further attempt up to MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration

	// Jitter randomizes each wait by up to ±Jitter of its length (0..1).
	Jitter float64

	// rand returns a value in [0,1). Tests replace it.
	rand func() float64

	// sleep waits for d or until ctx is done. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the number of attempts.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) { p.MaxAttempts = n }
}

// WithBackoff sets the base and maximum delay.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(p *Policy) {
		p.BaseDelay = base
		p.MaxDelay = maxDelay
	}
}

// WithJitter sets the jitter fraction.
func WithJitter(fraction float64) Option {
	return func(p *Policy) { p.Jitter = fraction }
}

// WithRand replaces the random source used for jitter.
func WithRand(fn func() float64) Option {
	return func(p *Policy) { p.rand = fn }
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Policy) { p.sleep = fn }
}

// NewPolicy returns a policy with default values overridden by opts.
func NewPolicy(opts ...Option) Policy {
	p := Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      DefaultJitter,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}

	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}

	jitter := min(max(p.Jitter, 0), 1)
	if jitter == 0 {
		return d
	}
	rnd := p.rand
	if rnd == nil {
		rnd = rand.Float64
	}
	// Scale by a factor in [1-jitter, 1+jitter).
	factor := 1 - jitter + 2*jitter*rnd()
	return time.Duration(float64(d) * factor)
}

// Condition is evaluated once per attempt. It returns true when the
// awaited state has been reached. A non-nil error stops the loop.
type Condition func(ctx context.Context, attempt int) (bool, error)

// Until evaluates cond up to p.MaxAttempts times, waiting p.Delay between
// attempts. It reports whether cond returned true. The loop stops early
// with the context's error when ctx is canceled.
func Until(ctx context.Context, p Policy, cond Condition) (bool, error) {
	attempts := max(p.MaxAttempts, 1)
	sleep := p.sleep
	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		ok, err := cond(ctx, attempt)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if attempt >= attempts {
			return false, nil
		}

		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return false, err
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
