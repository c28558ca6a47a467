package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/pageaudit/internal/database"
	"github.com/nao1215/pageaudit/internal/model"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeConfig writes a suite file into a temporary directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".pageaudit")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// storedRun builds a run of the au suite with one Home page.
func storedRun(runID string, started time.Time, homeLoad float64) *model.AuditReport {
	return &model.AuditReport{
		Suite:      "au",
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Minute),
		Records: []model.PageAuditRecord{
			{
				Title:      "Home",
				URL:        "https://www.forbes.com/advisor/au/",
				LoadTimeMs: homeLoad,
				TopResources: []model.ResourceSample{
					model.NewResourceSample("https://www.forbes.com/advisor/au/app.js", homeLoad/2, "script"),
				},
				Status:    model.StatusPassed,
				AuditedAt: started,
			},
		},
	}
}

// seedHistory stores reports in a new database under a temporary directory
// and returns that directory.
func seedHistory(t *testing.T, reports ...*model.AuditReport) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for _, r := range reports {
		if err := db.SaveRun(context.Background(), r, "digest"); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
	return dir
}
