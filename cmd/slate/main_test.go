package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := `[paths]
data_dir = "` + filepath.Join(base, "data") + `"
log_dir = "` + filepath.Join(base, "logs") + `"

[llm]
api_key = "test"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQueueListEmpty(t *testing.T) {
	path := writeTestConfig(t)
	out, err := runCommand(t, "--config", path, "queue", "list")
	if err != nil {
		t.Fatalf("queue list failed: %v", err)
	}
	if !strings.Contains(out, "queue is empty") {
		t.Fatalf("output = %q", out)
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	path := writeTestConfig(t)
	if _, err := runCommand(t, "--config", path, "queue", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestQueueHealthEmpty(t *testing.T) {
	path := writeTestConfig(t)
	out, err := runCommand(t, "--config", path, "queue", "health")
	if err != nil {
		t.Fatalf("queue health failed: %v", err)
	}
	if !strings.Contains(out, "total") {
		t.Fatalf("output = %q", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output = %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	// A second init must refuse to overwrite.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error for existing config")
	}

	show, err := runCommand(t, "--config", target, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(show, "[workflow]") {
		t.Fatalf("output = %q", show)
	}
	if strings.Contains(show, "sk-") {
		t.Fatal("api key must be redacted")
	}
}
