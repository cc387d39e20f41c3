// Package testsupport provides shared helpers for package tests: temp-dir
// configs, stores, and buffers wired together the way the daemon wires them.
package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"slate/internal/config"
	"slate/internal/queue"
	"slate/internal/securebuf"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"
	cfg.Buffer.Secret = "test-secret"
	return applyOptions(&cfg, opts)
}

func applyOptions(cfg *config.Config, opts []ConfigOption) *config.Config {
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithWorkers overrides the workflow worker count.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.Workers = n
	}
}

// MustOpenStore opens the job store for cfg and closes it when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// MustNewBuffer builds a staging buffer from cfg.
func MustNewBuffer(t testing.TB, cfg *config.Config) *securebuf.Store {
	t.Helper()
	buf, err := securebuf.New(
		cfg.Buffer.Secret,
		cfg.Buffer.MaxBytes,
		time.Duration(cfg.Buffer.TTLSeconds)*time.Second,
	)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	return buf
}
