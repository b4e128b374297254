package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCommand()
	root.Writer = &buf
	err := root.Run(context.Background(), append([]string{"twinflow", "--config", cfg}, args...))
	return buf.String(), err
}

func mustRun(t *testing.T, cfg string, args ...string) string {
	t.Helper()
	out, err := run(t, cfg, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func addedID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "Added" {
		t.Fatalf("unexpected add output %q", out)
	}
	return fields[1]
}

func TestAddListToggleStatus(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")

	audit := addedID(t, mustRun(t, cfg, "add", "--priority", "high", "--due-date", "2024-01-30", "--description", "Perform security assessment", "Security", "audit"))
	mustRun(t, cfg, "add", "--assignee", "Sarah Smith", "Design system review")

	out := mustRun(t, cfg, "tasks")
	for _, want := range []string{"STATUS", "Security audit", "Design system review", "Sarah Smith", "2024-01-30"} {
		if !strings.Contains(out, want) {
			t.Errorf("tasks output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Security audit") > strings.Index(out, "Design system review") {
		t.Errorf("tasks not in insertion order:\n%s", out)
	}

	out = mustRun(t, cfg, "toggle", audit)
	if !strings.Contains(out, `"Security audit" is now Completed`) {
		t.Errorf("toggle output: %q", out)
	}

	out = mustRun(t, cfg, "tasks", "--status", "pending")
	if strings.Contains(out, "Security audit") || !strings.Contains(out, "Design system review") {
		t.Errorf("pending list:\n%s", out)
	}

	out = mustRun(t, cfg, "tasks", "--search", "ASSESSMENT")
	if !strings.Contains(out, "Security audit") || strings.Contains(out, "Design system review") {
		t.Errorf("search list:\n%s", out)
	}

	out = mustRun(t, cfg, "--due", "2099-01-01", "status")
	for _, want := range []string{"Signed in:  no", "All 2", "Pending 1", "In Progress 0", "Completed 1", "Project:    2099-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestAddRequiresTitle(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	if _, err := run(t, cfg, "add"); err == nil {
		t.Error("expected error without title")
	}
}

func TestToggleUnknownID(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	if _, err := run(t, cfg, "toggle", "does-not-exist"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestTasksRejectsUnknownStatus(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	if _, err := run(t, cfg, "tasks", "--status", "archived"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestSignOutWithoutSession(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	if out := mustRun(t, cfg, "signout"); !strings.Contains(out, "Signed out.") {
		t.Errorf("got %q", out)
	}
}

func TestEmptyList(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	if out := mustRun(t, cfg, "tasks"); !strings.Contains(out, "No tasks found.") {
		t.Errorf("got %q", out)
	}
}
