package pipeline

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
)

func TestBatchRunner(t *testing.T) {
	t.Parallel()

	t.Run("runs every suite", func(t *testing.T) {
		t.Parallel()

		var (
			mu  sync.Mutex
			ran []string
		)
		b := NewBatchRunner(func(_ context.Context, _ int, suite string) error {
			mu.Lock()
			defer mu.Unlock()
			ran = append(ran, suite)
			return nil
		}, WithConcurrency(2), WithBatchLogger(discardLogger()))

		if err := b.Run(context.Background(), []string{"au", "ca", "uk"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		slices.Sort(ran)
		if !slices.Equal(ran, []string{"au", "ca", "uk"}) {
			t.Errorf("unexpected suites %v", ran)
		}
	})

	t.Run("default concurrency runs one suite at a time", func(t *testing.T) {
		t.Parallel()

		var active, peak atomic.Int32
		b := NewBatchRunner(func(context.Context, int, string) error {
			n := active.Add(1)
			defer active.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			return nil
		}, WithBatchLogger(discardLogger()))

		if err := b.Run(context.Background(), []string{"au", "ca", "uk"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() != 1 {
			t.Errorf("expected at most one active suite, got %d", peak.Load())
		}
	})

	t.Run("returns the first suite error", func(t *testing.T) {
		t.Parallel()

		writeErr := errors.New("disk full")
		b := NewBatchRunner(func(_ context.Context, _ int, suite string) error {
			if suite == "ca" {
				return writeErr
			}
			return nil
		}, WithBatchLogger(discardLogger()))

		if err := b.Run(context.Background(), []string{"au", "ca"}); !errors.Is(err, writeErr) {
			t.Errorf("expected disk full, got %v", err)
		}
	})
}
