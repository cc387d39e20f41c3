package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slate/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, created, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if created {
		t.Fatal("expected created=false for missing file")
	}
	if cfg.Buffer.TTLSeconds != 21600 {
		t.Fatalf("expected default buffer TTL, got %d", cfg.Buffer.TTLSeconds)
	}
	if cfg.Workflow.Workers != 2 {
		t.Fatalf("expected default worker count, got %d", cfg.Workflow.Workers)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[analysis]",
		"scene_concurrency = 8",
		"[logging]",
		`format = "json"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, created, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !created {
		t.Fatal("expected created=true")
	}
	if cfg.Analysis.SceneConcurrency != 8 {
		t.Fatalf("override not applied: %d", cfg.Analysis.SceneConcurrency)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("override not applied: %q", cfg.Logging.Format)
	}
	// untouched sections keep defaults
	if cfg.Analysis.RetryAttempts != 3 {
		t.Fatalf("expected default retry attempts, got %d", cfg.Analysis.RetryAttempts)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.SceneConcurrency = 0
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "scene_concurrency") {
		t.Fatalf("expected scene_concurrency in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected logging.format in error, got %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
