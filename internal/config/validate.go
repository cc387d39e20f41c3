package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if c.Buffer.TTLSeconds <= 0 {
		problems = append(problems, "buffer.ttl_seconds must be positive")
	}
	if c.Buffer.MaxBytes <= 0 {
		problems = append(problems, "buffer.max_bytes must be positive")
	}
	if c.Analysis.SceneConcurrency <= 0 {
		problems = append(problems, "analysis.scene_concurrency must be positive")
	}
	if c.Analysis.RetryAttempts <= 0 {
		problems = append(problems, "analysis.retry_attempts must be positive")
	}
	if c.Analysis.RetryBaseSeconds <= 0 || c.Analysis.RetryMaxSeconds < c.Analysis.RetryBaseSeconds {
		problems = append(problems, "analysis retry backoff bounds are inconsistent")
	}
	if c.Parsing.PDFMaxPages <= 0 {
		problems = append(problems, "parsing.pdf_max_pages must be positive")
	}
	if c.Workflow.Workers <= 0 {
		problems = append(problems, "workflow.workers must be positive")
	}
	if c.Workflow.QueuePollInterval <= 0 {
		problems = append(problems, "workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 || c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		problems = append(problems, "workflow heartbeat timeout must exceed the interval")
	}
	if c.Delivery.ReportRetentionHours <= 0 {
		problems = append(problems, "delivery.report_retention_hours must be positive")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
