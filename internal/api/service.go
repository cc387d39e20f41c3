// Package api is the owner-facing surface: job submission, status, report
// retrieval, and cancellation.
//
// Owners only ever see public statuses and their own jobs. Script content is
// accepted here, staged into the encrypted buffer, and never stored in the
// job database.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"slate/internal/config"
	"slate/internal/logging"
	"slate/internal/queue"
	"slate/internal/screenplay"
	"slate/internal/securebuf"
	"slate/internal/services"
	"slate/internal/taxonomy"
)

// Service exposes the job lifecycle operations.
type Service struct {
	cfg     *config.Config
	store   *queue.Store
	buffers *securebuf.Store
	logger  *slog.Logger
}

// NewService constructs the owner-facing service.
func NewService(cfg *config.Config, store *queue.Store, buffers *securebuf.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:     cfg,
		store:   store,
		buffers: buffers,
		logger:  logging.NewComponentLogger(logger, "api"),
	}
}

// SubmitParams describes a submission request.
type SubmitParams struct {
	OwnerID        string
	Format         string
	Content        []byte
	IdempotencyKey string
	Priority       int
	CallbackURL    string
}

// SubmitResult reports the accepted job.
type SubmitResult struct {
	JobID   string             `json:"job_id"`
	Status  queue.PublicStatus `json:"status"`
	Existed bool               `json:"existed"`
}

// Submit validates and stages a script, then enqueues the job. Submitting
// twice with the same owner and idempotency key returns the original job.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (*SubmitResult, error) {
	owner := strings.TrimSpace(params.OwnerID)
	if owner == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "submit", "owner required", nil)
	}
	format, ok := screenplay.ParseFormat(params.Format)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "api", "submit",
			fmt.Sprintf("unsupported script format %q", params.Format), nil)
	}
	if len(params.Content) == 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "submit", "script content required", nil)
	}
	if callback := strings.TrimSpace(params.CallbackURL); callback != "" {
		parsed, err := url.Parse(callback)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, services.Wrap(services.ErrValidation, "api", "submit",
				"callback URL must be absolute http or https", nil)
		}
	}

	// Idempotent resubmits must not stage a second copy of the content.
	if key := strings.TrimSpace(params.IdempotencyKey); key != "" {
		existing, err := s.store.FindByIdempotencyKey(ctx, owner, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &SubmitResult{JobID: existing.JobID, Status: existing.Status.Public(), Existed: true}, nil
		}
	}

	bufferKey, err := s.buffers.Put(params.Content, 0)
	if err != nil {
		if errors.Is(err, securebuf.ErrOversize) {
			return nil, services.Wrap(services.ErrValidation, "api", "submit", "script exceeds size limit", err)
		}
		return nil, services.Wrap(services.ErrTransient, "api", "submit", "stage script content", err)
	}

	job, existed, err := s.store.NewJob(ctx, queue.NewJobParams{
		OwnerID:        owner,
		Format:         string(format),
		BufferKey:      bufferKey,
		IdempotencyKey: strings.TrimSpace(params.IdempotencyKey),
		CallbackURL:    strings.TrimSpace(params.CallbackURL),
		Priority:       params.Priority,
	})
	if err != nil {
		s.buffers.Delete(bufferKey)
		return nil, err
	}
	if existed {
		// Lost an idempotency race; the winner's staged copy is the live one.
		s.buffers.Delete(bufferKey)
		return &SubmitResult{JobID: job.JobID, Status: job.Status.Public(), Existed: true}, nil
	}

	s.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String("format", string(format)),
		logging.Int("bytes", len(params.Content)))
	return &SubmitResult{JobID: job.JobID, Status: job.Status.Public()}, nil
}

// JobStatus is the owner-visible view of a job. ReportID is set once the
// report exists and is what TakeReport retrieves by.
type JobStatus struct {
	JobID         string             `json:"job_id"`
	Status        queue.PublicStatus `json:"status"`
	ProgressStage string             `json:"progress_stage,omitempty"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	ReportID      string             `json:"report_id,omitempty"`
	ReportReady   bool               `json:"report_ready"`
	CreatedAt     time.Time          `json:"created_at"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
}

// GetStatus returns the public view of a job. Jobs belonging to other owners
// are indistinguishable from missing ones.
func (s *Service) GetStatus(ctx context.Context, owner, jobID string) (*JobStatus, error) {
	job, err := s.store.GetForOwner(ctx, owner, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "status", "job not found", nil)
	}
	return &JobStatus{
		JobID:         job.JobID,
		Status:        job.Status.Public(),
		ProgressStage: job.ProgressStage,
		ErrorMessage:  job.ErrorMessage,
		ReportID:      job.ReportID,
		ReportReady:   job.Status == queue.StatusCompleted && job.ReportID != "",
		CreatedAt:     job.CreatedAt,
		CompletedAt:   job.CompletedAt,
	}, nil
}

// Report is a retrieved safety report.
type Report struct {
	ReportID          string             `json:"report_id"`
	JobID             string             `json:"job_id"`
	Findings          []taxonomy.Finding `json:"findings"`
	RiskSummary       json.RawMessage    `json:"risk_summary"`
	Metadata          json.RawMessage    `json:"metadata,omitempty"`
	ProcessingSeconds float64            `json:"processing_seconds"`
	GeneratedAt       time.Time          `json:"generated_at"`
}

// TakeReport retrieves a report exactly once by its report ID. A second call
// reports the report as gone.
func (s *Service) TakeReport(ctx context.Context, owner, reportID string) (*Report, error) {
	row, err := s.store.TakeReport(ctx, owner, reportID)
	if err != nil {
		return nil, err
	}

	var findings []taxonomy.Finding
	if err := json.Unmarshal([]byte(row.FindingsJSON), &findings); err != nil {
		return nil, fmt.Errorf("decode stored findings: %w", err)
	}
	s.logger.Info("report retrieved",
		logging.String(logging.FieldJobID, row.JobID),
		logging.String("report_id", row.ReportID))
	return &Report{
		ReportID:          row.ReportID,
		JobID:             row.JobID,
		Findings:          findings,
		RiskSummary:       json.RawMessage(row.RiskSummary),
		Metadata:          json.RawMessage(row.MetadataJSON),
		ProcessingSeconds: row.ProcessingTime,
		GeneratedAt:       row.CreatedAt,
	}, nil
}

// Cancel requests cancellation of a job. Cancelling an already-cancelled or
// finished job is a no-op.
func (s *Service) Cancel(ctx context.Context, owner, jobID string) error {
	job, err := s.store.GetForOwner(ctx, owner, jobID)
	if err != nil {
		return err
	}
	if err := s.store.Cancel(ctx, owner, jobID); err != nil {
		return err
	}
	if job != nil && !job.Status.IsTerminal() {
		// Parked jobs (pending or between stages) are never picked up again,
		// so their staged content is released here. In-flight jobs release
		// theirs when the worker observes the cancellation.
		if !job.IsProcessing() {
			s.buffers.Delete(job.BufferKeys()...)
		}
	}
	s.logger.Info("job cancelled", logging.String(logging.FieldJobID, jobID))
	return nil
}
