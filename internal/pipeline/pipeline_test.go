package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/nao1215/pageaudit/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, audit *model.PageAudit) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, audit *model.PageAudit) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, audit)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newAudit() *model.PageAudit {
	return model.NewPageAudit(model.PageTarget{Title: "Home", URL: "https://www.forbes.com/advisor/au/"})
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.continueOnError {
			t.Error("expected continueOnError to be false by default")
		}
	})

	t.Run("records step names in order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "navigate"})
		p.AddSteps(&mockStep{name: "metrics"}, &mockStep{name: "screenshot"})

		want := []string{"navigate", "metrics", "screenshot"}
		if got := p.StepNames(); !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

// TestPipelineExecute tests step execution and error handling.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs every step", func(t *testing.T) {
		t.Parallel()

		first := &mockStep{name: "first"}
		second := &mockStep{name: "second"}
		p := New(WithLogger(discardLogger()))
		p.AddSteps(first, second)

		audit := newAudit()
		if err := p.Execute(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.callCount != 1 || second.callCount != 1 {
			t.Errorf("expected each step once, got %d and %d", first.callCount, second.callCount)
		}
		if !slices.Equal(audit.PerformedSteps, []string{"first", "second"}) {
			t.Errorf("unexpected performed steps %v", audit.PerformedSteps)
		}
	})

	t.Run("stops on error by default", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(context.Context, *model.PageAudit) error { return boom }}
		after := &mockStep{name: "after"}
		p := New(WithLogger(discardLogger()))
		p.AddSteps(failing, after)

		audit := newAudit()
		if err := p.Execute(context.Background(), audit); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later step to be skipped")
		}
		if !errors.Is(audit.Err, boom) {
			t.Errorf("expected audit.Err to be boom, got %v", audit.Err)
		}
	})

	t.Run("continue on error turns errors into failed checks", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "metrics", doFunc: func(context.Context, *model.PageAudit) error {
			return errors.New("no timings")
		}}
		after := &mockStep{name: "screenshot"}
		p := New(WithLogger(discardLogger()), WithContinueOnError(true))
		p.AddSteps(failing, after)

		audit := newAudit()
		if err := p.Execute(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if after.callCount != 1 {
			t.Error("expected later step to run")
		}
		if len(audit.Checks) != 1 || audit.Checks[0].Name != "metrics" || audit.Checks[0].Passed {
			t.Errorf("unexpected checks %+v", audit.Checks)
		}
		if audit.Err != nil {
			t.Errorf("expected no audit error, got %v", audit.Err)
		}
		if audit.Record().Status != model.StatusFailed {
			t.Error("expected failed status")
		}
	})

	t.Run("abort sentinels stop even with continue on error", func(t *testing.T) {
		t.Parallel()

		for _, sentinel := range []error{ErrAbortPage, ErrCaptchaBlocked} {
			after := &mockStep{name: "after"}
			p := New(WithLogger(discardLogger()), WithContinueOnError(true))
			p.AddSteps(&mockStep{name: "stop", doFunc: func(context.Context, *model.PageAudit) error { return sentinel }}, after)

			audit := newAudit()
			if err := p.Execute(context.Background(), audit); !errors.Is(err, sentinel) {
				t.Errorf("expected %v, got %v", sentinel, err)
			}
			if after.callCount != 0 {
				t.Errorf("expected %v to stop the pipeline", sentinel)
			}
		}
	})

	t.Run("cancelled context stops before the next step", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancelling := &mockStep{name: "cancel", doFunc: func(context.Context, *model.PageAudit) error {
			cancel()
			return nil
		}}
		after := &mockStep{name: "after"}
		p := New(WithLogger(discardLogger()), WithContinueOnError(true))
		p.AddSteps(cancelling, after)

		if err := p.Execute(ctx, newAudit()); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later step to be skipped")
		}
	})
}
