package workflow

import (
	"context"
	"errors"

	"slate/internal/logging"
	"slate/internal/queue"
	"slate/internal/services"
)

// handleStageFailure marks the job failed and releases its staged content.
// Retryable errors roll the job back to the stage boundary instead, so the
// next worker pass retries the whole stage.
func (m *Manager) handleStageFailure(ctx context.Context, st pipelineStage, job *queue.Job, stageErr error) {
	m.setLastError(stageErr)
	logger := m.logger.With(
		logging.String(logging.FieldJobID, job.JobID),
		logging.String(logging.FieldStage, st.name))

	if services.IsRetryable(stageErr) && m.recordStageRetry(job, st.name) {
		if err := m.persistWhileProcessing(ctx, st, job); err != nil {
			m.handlePersistConflict(ctx, st, job, err)
			return
		}
		if err := m.store.TransitionStatus(ctx, job.JobID, st.processingStatus, st.startStatus); err != nil {
			if errors.Is(err, services.ErrConflict) {
				m.handlePersistConflict(ctx, st, job, err)
				return
			}
			logger.Error("failed to roll back for retry", logging.Error(err))
		} else {
			logger.Warn("stage failed, job returned for retry", logging.Error(stageErr))
			return
		}
	}

	message := failureMessage(st.name, stageErr)
	job.SetFailed(message)
	m.purgeBuffers(job)
	job.BufferKey = ""
	job.BufferKeysJSON = ""

	if err := m.persistWhileProcessing(ctx, st, job); err != nil {
		m.handlePersistConflict(ctx, st, job, err)
		return
	}
	if err := m.store.TransitionStatus(ctx, job.JobID, st.processingStatus, queue.StatusFailed); err != nil {
		m.handlePersistConflict(ctx, st, job, err)
		return
	}
	job.Status = queue.StatusFailed

	logger.Error("stage failed",
		logging.String("error_message", message),
		logging.Error(stageErr))
}

// maxStageRetries bounds how often a transient failure may return a job to
// its stage boundary before it fails for good.
const maxStageRetries = 3

// recordStageRetry bumps the job's retry count for the stage and reports
// whether another attempt is allowed.
func (m *Manager) recordStageRetry(job *queue.Job, stageName string) bool {
	key := "retries_" + stageName
	attempts := 0
	if raw, ok := job.Metadata()[key]; ok {
		if n, ok := raw.(float64); ok {
			attempts = int(n)
		}
	}
	if attempts >= maxStageRetries {
		return false
	}
	job.SetMetadataValue(key, attempts+1)
	return true
}

func failureMessage(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageName + " failed without error detail"
	}
	message := services.Reason(stageErr)
	if message == "" {
		return stageName + " failed"
	}
	return message
}
