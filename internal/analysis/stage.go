package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"slate/internal/config"
	"slate/internal/logging"
	"slate/internal/queue"
	"slate/internal/screenplay"
	"slate/internal/securebuf"
	"slate/internal/services"
	"slate/internal/stage"
)

// Stage runs the per-scene analysis between parsing and aggregation.
type Stage struct {
	cfg     *config.Config
	buffers *securebuf.Store
	engine  *Engine
	logger  *slog.Logger
}

// NewStage constructs the analysis stage.
func NewStage(cfg *config.Config, buffers *securebuf.Store, engine *Engine, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:     cfg,
		buffers: buffers,
		engine:  engine,
		logger:  logging.NewComponentLogger(logger, "analysis"),
	}
}

// Prepare validates that the parsed document is staged.
func (s *Stage) Prepare(_ context.Context, job *queue.Job) error {
	if job.BufferKey == "" {
		return services.Wrap(services.ErrValidation, "analysis", "prepare", "job has no staged document", nil)
	}
	job.ProgressStage = "analyzing"
	return nil
}

// Execute analyzes the staged document and stages the analysis result.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	data, err := s.buffers.Get(job.BufferKey)
	if err != nil {
		if errors.Is(err, securebuf.ErrNotFound) {
			return services.Wrap(services.ErrExpired, "analysis", "fetch_buffer",
				"staged document expired or was never stored", err)
		}
		return services.Wrap(services.ErrTransient, "analysis", "fetch_buffer", "read staged document", err)
	}

	var doc screenplay.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return services.Wrap(services.ErrValidation, "analysis", "decode_document", "decode staged document", err)
	}

	result, err := s.engine.Analyze(ctx, &doc)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return services.Wrap(services.ErrTransient, "analysis", "encode_result", "encode analysis result", err)
	}
	resultKey, err := s.buffers.Put(encoded, 0)
	if err != nil {
		return services.Wrap(services.ErrTransient, "analysis", "stage_result", "stage analysis result", err)
	}

	docKey := job.BufferKey
	job.AttachBufferKey(resultKey)
	s.buffers.Delete(docKey)

	job.SetMetadataValue("finding_count", len(result.Findings))
	if len(result.DegradedScenes) > 0 {
		job.SetMetadataValue("degraded_scenes", result.DegradedScenes)
	}
	if result.DroppedFindings > 0 {
		job.SetMetadataValue("dropped_findings", result.DroppedFindings)
	}

	s.logger.Info("scenes analyzed",
		logging.String(logging.FieldJobID, job.JobID),
		logging.Int("scenes", result.SceneCount),
		logging.Int("findings", len(result.Findings)),
		logging.Int("degraded", len(result.DegradedScenes)))
	return nil
}

// HealthCheck reports stage readiness.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s.buffers == nil {
		return stage.Unhealthy("analysis", "staging buffer unavailable")
	}
	if err := s.engine.provider.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("analysis", err.Error())
	}
	return stage.Healthy("analysis")
}
