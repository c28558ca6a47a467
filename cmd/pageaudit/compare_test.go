package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/pageaudit/internal/perfdiff"
)

func TestCompareCmd(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	dbDir := seedHistory(t,
		storedRun("run-base", started, 1000),
		storedRun("run-head", started.Add(time.Hour), 1500),
	)

	t.Run("text output of the latest two runs", func(t *testing.T) {
		out, _, err := execute(t, "compare", "au", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"run-base", "run-head", "Home", "regressed"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		out, _, err := execute(t, "compare", "au", "--db-dir", dbDir, "-f", "markdown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(out, "# Performance comparison: au") {
			t.Errorf("unexpected markdown:\n%s", out)
		}
	})

	t.Run("json output with explicit runs", func(t *testing.T) {
		out, _, err := execute(t, "compare", "au", "--db-dir", dbDir,
			"--base", "run-head", "--head", "run-base", "-f", "json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var diff perfdiff.RunDiff
		if err := json.Unmarshal([]byte(out), &diff); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if diff.Verdict != perfdiff.VerdictImproved {
			t.Errorf("expected improved when runs are swapped, got %s", diff.Verdict)
		}
	})

	t.Run("threshold hides the change", func(t *testing.T) {
		out, _, err := execute(t, "compare", "au", "--db-dir", dbDir, "--min-delta-ms", "1000")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(out, "regressed") {
			t.Errorf("expected no regression above threshold, got:\n%s", out)
		}
	})

	t.Run("page history", func(t *testing.T) {
		out, _, err := execute(t, "compare", "au", "--db-dir", dbDir,
			"--page", "https://www.forbes.com/advisor/au/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		head := strings.Index(out, "1500.0 ms")
		base := strings.Index(out, "1000.0 ms")
		if head < 0 || base < 0 || head > base {
			t.Errorf("expected both loads newest first, got:\n%s", out)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		_, _, err := execute(t, "compare", "au", "--db-dir", dbDir, "--base", "missing", "--head", "run-head")
		if err == nil || !strings.Contains(err.Error(), "run not found") {
			t.Errorf("expected run not found, got %v", err)
		}
	})

	t.Run("run of another suite", func(t *testing.T) {
		_, _, err := execute(t, "compare", "ca", "--db-dir", dbDir, "--base", "run-base", "--head", "run-head")
		if err == nil {
			t.Error("expected error for suite mismatch")
		}
	})

	t.Run("not enough runs", func(t *testing.T) {
		single := seedHistory(t, storedRun("only", started, 1000))
		_, _, err := execute(t, "compare", "au", "--db-dir", single)
		if !errors.Is(err, errNotEnoughRuns) {
			t.Errorf("expected errNotEnoughRuns, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, _, err := execute(t, "compare", "au", "--db-dir", dbDir, "-f", "xml"); err == nil {
			t.Error("expected error")
		}
	})
}
