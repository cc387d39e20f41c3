package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Buffer contains settings for the encrypted staging buffer. An empty
// secret selects a random per-process key, which is fine for a single
// daemon because the buffer lives in memory only.
type Buffer struct {
	Secret     string `toml:"secret"`
	TTLSeconds int    `toml:"ttl_seconds"`
	MaxBytes   int64  `toml:"max_bytes"`
}

// LLM contains connection settings for the model provider.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Analysis contains settings for per-scene risk analysis.
type Analysis struct {
	SceneConcurrency    int `toml:"scene_concurrency"`
	RetryAttempts       int `toml:"retry_attempts"`
	RetryBaseSeconds    int `toml:"retry_base_seconds"`
	RetryMaxSeconds     int `toml:"retry_max_seconds"`
	SceneTimeoutSeconds int `toml:"scene_timeout_seconds"`
}

// Parsing contains settings for the FDX and PDF parsers.
type Parsing struct {
	PDFMaxPages         int `toml:"pdf_max_pages"`
	StageTimeoutSeconds int `toml:"stage_timeout_seconds"`
}

// Delivery contains settings for report delivery.
type Delivery struct {
	CallbackTimeoutSeconds int `toml:"callback_timeout_seconds"`
	ReportRetentionHours   int `toml:"report_retention_hours"`
}

// Workflow contains daemon timing and worker settings.
type Workflow struct {
	Workers            int `toml:"workers"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for slate.
//
// Sections by subsystem:
//   - Paths: data and log directories
//   - Buffer: encrypted staging buffer TTL and size cap
//   - LLM: model provider connection settings
//   - Analysis: scene fan-out concurrency and retry policy
//   - Parsing: parser limits and stage timeout
//   - Delivery: callback timeout and report retention
//   - Workflow: worker count, polling, and heartbeat intervals
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Buffer   Buffer   `toml:"buffer"`
	LLM      LLM      `toml:"llm"`
	Analysis Analysis `toml:"analysis"`
	Parsing  Parsing  `toml:"parsing"`
	Delivery Delivery `toml:"delivery"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has defaults applied and paths expanded. A missing file is not an
// error; defaults are returned and created reports false.
func Load(path string) (*Config, bool, error) {
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, false, err
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// fall through with defaults
	default:
		return nil, false, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, err == nil, nil
}

// WriteSample writes the annotated sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return expandPath(path)
	}
	return DefaultConfigPath()
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path must not be empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
