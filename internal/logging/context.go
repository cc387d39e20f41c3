package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldStage is the standardized structured logging key for workflow stage names.
	FieldStage = "stage"
	// FieldSceneNumber is the standardized structured logging key for scene numbers.
	FieldSceneNumber = "scene_number"
	// FieldEventType is the standardized structured logging key for machine-readable event tags.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator guidance.
	FieldErrorHint = "error_hint"
)

type contextKey string

const (
	ctxJobID contextKey = "job_id"
	ctxStage contextKey = "stage"
)

// WithJob stores a job identifier on the context for later logger enrichment.
func WithJob(ctx context.Context, jobID string) context.Context {
	if jobID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxJobID, jobID)
}

// WithStage stores a workflow stage name on the context.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxStage, stage)
}

// JobFromContext returns the job identifier carried by the context, if any.
func JobFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(ctxJobID).(string)
	return value, ok && value != ""
}

// StageFromContext returns the stage name carried by the context, if any.
func StageFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(ctxStage).(string)
	return value, ok && value != ""
}

// WithContext re-applies context-carried identity fields to a logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if ctx == nil {
		return logger
	}
	if jobID, ok := JobFromContext(ctx); ok {
		logger = logger.With(String(FieldJobID, jobID))
	}
	if stage, ok := StageFromContext(ctx); ok {
		logger = logger.With(String(FieldStage, stage))
	}
	return logger
}
