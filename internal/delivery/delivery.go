// Package delivery implements the final stage: pushing the report to the
// job's callback when one is configured and releasing staged content.
//
// Push delivery is best effort. A failed callback never fails the job; the
// report stays in the store for pull retrieval either way.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"slate/internal/config"
	"slate/internal/logging"
	"slate/internal/queue"
	"slate/internal/securebuf"
	"slate/internal/services"
	"slate/internal/stage"
)

// Stage delivers finished reports and purges staged content.
type Stage struct {
	cfg     *config.Config
	buffers *securebuf.Store
	client  *http.Client
	logger  *slog.Logger
}

// Option adjusts stage behavior.
type Option func(*Stage)

// WithHTTPClient overrides the callback HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Stage) {
		if client != nil {
			s.client = client
		}
	}
}

// New constructs the delivery stage.
func New(cfg *config.Config, buffers *securebuf.Store, logger *slog.Logger, opts ...Option) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.Delivery.CallbackTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Stage{
		cfg:     cfg,
		buffers: buffers,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.NewComponentLogger(logger, "delivery"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare marks the job as delivering.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	if job.ReportID == "" {
		return services.Wrap(services.ErrValidation, "delivery", "prepare", "job has no report", nil)
	}
	job.ProgressStage = "delivering"
	return nil
}

// Execute pushes the report when a callback is configured, then purges every
// buffer key the job ever held. Purging twice is safe.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	if job.CallbackURL != "" {
		payload, err := s.buffers.Get(job.BufferKey)
		if err != nil {
			if !errors.Is(err, securebuf.ErrNotFound) {
				return services.Wrap(services.ErrTransient, "delivery", "fetch_buffer", "read report payload", err)
			}
			s.logger.Warn("report payload expired before push delivery",
				logging.String(logging.FieldJobID, job.JobID))
		} else if err := s.push(ctx, job, payload); err != nil {
			job.SetMetadataValue("callback_error", err.Error())
			s.logger.Warn("callback delivery failed",
				logging.String(logging.FieldJobID, job.JobID),
				logging.Error(err))
		} else {
			job.SetMetadataValue("callback_delivered", true)
		}
	}

	s.Purge(job)

	s.logger.Info("job delivered",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String("report_id", job.ReportID))
	return nil
}

func (s *Stage) push(ctx context.Context, job *queue.Job, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.CallbackURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", job.JobID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post callback: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}

// Purge deletes every buffer key the job ever held. Missing keys are fine.
func (s *Stage) Purge(job *queue.Job) {
	for _, key := range job.BufferKeys() {
		s.buffers.Delete(key)
	}
}

// HealthCheck reports stage readiness.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.buffers == nil {
		return stage.Unhealthy("delivery", "staging buffer unavailable")
	}
	return stage.Healthy("delivery")
}
