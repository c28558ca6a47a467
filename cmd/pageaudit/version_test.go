package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildInfo(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func() string{
		"version": getVersion,
		"commit":  getCommit,
		"date":    getDate,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if fn() == "" {
				t.Errorf("%s is empty", name)
			}
		})
	}

	t.Run("missing setting is unknown", func(t *testing.T) {
		t.Parallel()
		if got := vcsSetting("no.such.setting"); got != "unknown" {
			t.Errorf("expected unknown, got %q", got)
		}
	})
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"pageaudit version", "commit:", "built:", "go:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}
}
