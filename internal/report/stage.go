package report

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"slate/internal/analysis"
	"slate/internal/config"
	"slate/internal/logging"
	"slate/internal/queue"
	"slate/internal/securebuf"
	"slate/internal/services"
	"slate/internal/stage"
)

// Stage turns staged analysis results into persisted reports.
type Stage struct {
	cfg     *config.Config
	store   *queue.Store
	buffers *securebuf.Store
	logger  *slog.Logger
}

// NewStage constructs the aggregation stage.
func NewStage(cfg *config.Config, store *queue.Store, buffers *securebuf.Store, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:     cfg,
		store:   store,
		buffers: buffers,
		logger:  logging.NewComponentLogger(logger, "report"),
	}
}

// Prepare validates that an analysis result is staged.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	if job.BufferKey == "" {
		return services.Wrap(services.ErrValidation, "report", "prepare", "job has no staged analysis result", nil)
	}
	job.ProgressStage = "aggregating"
	return nil
}

// Execute builds the report payload, persists it, and stages the payload for
// delivery. The analysis result key is deleted once the payload is staged.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	data, err := s.buffers.Get(job.BufferKey)
	if err != nil {
		if errors.Is(err, securebuf.ErrNotFound) {
			return services.Wrap(services.ErrExpired, "report", "fetch_buffer",
				"staged analysis result expired or was never stored", err)
		}
		return services.Wrap(services.ErrTransient, "report", "fetch_buffer", "read staged analysis result", err)
	}

	var result analysis.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return services.Wrap(services.ErrValidation, "report", "decode_result", "decode staged analysis result", err)
	}

	payload := Build(job.JobID, &result, time.Since(job.CreatedAt))

	findingsJSON, err := json.Marshal(payload.Findings)
	if err != nil {
		return services.Wrap(services.ErrTransient, "report", "encode_findings", "encode findings", err)
	}
	summaryJSON, err := json.Marshal(payload.Summary)
	if err != nil {
		return services.Wrap(services.ErrTransient, "report", "encode_summary", "encode risk summary", err)
	}
	metadataJSON, err := json.Marshal(payload.Metadata())
	if err != nil {
		return services.Wrap(services.ErrTransient, "report", "encode_metadata", "encode report metadata", err)
	}

	row := &queue.Report{
		JobID:          job.JobID,
		OwnerID:        job.OwnerID,
		FindingsJSON:   string(findingsJSON),
		RiskSummary:    string(summaryJSON),
		ProcessingTime: payload.ProcessingSeconds,
		MetadataJSON:   string(metadataJSON),
	}
	if err := s.store.SaveReport(ctx, row); err != nil {
		if !errors.Is(err, services.ErrConflict) {
			return services.Wrap(services.ErrTransient, "report", "save_report", "persist report", err)
		}
		// A report from an earlier attempt already exists; keep its ID.
		payload.ReportID = job.ReportID
		s.logger.Warn("report already saved for job",
			logging.String(logging.FieldJobID, job.JobID))
	} else {
		job.ReportID = row.ReportID
		payload.ReportID = row.ReportID
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrTransient, "report", "encode_payload", "encode report payload", err)
	}
	payloadKey, err := s.buffers.Put(encoded, 0)
	if err != nil {
		return services.Wrap(services.ErrTransient, "report", "stage_payload", "stage report payload", err)
	}

	resultKey := job.BufferKey
	job.AttachBufferKey(payloadKey)
	s.buffers.Delete(resultKey)

	job.SetMetadataValue("overall_risk", string(payload.Summary.OverallRisk))
	job.SetMetadataValue("total_findings", payload.Summary.TotalFindings)

	s.logger.Info("report aggregated",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String("report_id", job.ReportID),
		logging.String("overall_risk", string(payload.Summary.OverallRisk)),
		logging.Int("findings", payload.Summary.TotalFindings))
	return nil
}

// HealthCheck reports stage readiness.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.store == nil {
		return stage.Unhealthy("report", "queue store unavailable")
	}
	return stage.Healthy("report")
}
