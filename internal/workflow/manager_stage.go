package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"slate/internal/logging"
	"slate/internal/queue"
	"slate/internal/services"
)

func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	ctx = logging.WithJob(ctx, job.JobID)
	st, ok := m.stageByStart[job.Status]
	if !ok {
		m.logger.Warn("no stage configured for status",
			logging.String(logging.FieldJobID, job.JobID),
			logging.String("status", string(job.Status)))
		m.sleep(ctx, m.pollInterval)
		return nil
	}

	// Claim the job. Losing the race means another worker or a cancellation
	// got there first.
	if err := m.store.TransitionStatus(ctx, job.JobID, st.startStatus, st.processingStatus); err != nil {
		if errors.Is(err, services.ErrConflict) {
			return nil
		}
		m.setLastError(err)
		return err
	}
	job.Status = st.processingStatus
	now := time.Now().UTC()
	job.LastHeartbeat = &now
	job.ErrorMessage = ""

	return m.executeStage(ctx, st, job)
}

func (m *Manager) executeStage(ctx context.Context, st pipelineStage, job *queue.Job) error {
	ctx = logging.WithStage(ctx, st.name)
	logger := logging.WithContext(ctx, m.logger)
	start := time.Now()
	logger.Info("stage started")

	if err := st.handler.Prepare(ctx, job); err != nil {
		m.handleStageFailure(ctx, st, job, err)
		return err
	}
	if err := m.persistWhileProcessing(ctx, st, job); err != nil {
		return m.handlePersistConflict(ctx, st, job, err)
	}

	execErr := m.executeWithHeartbeat(ctx, st, job)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			if ctx.Err() != nil {
				logger.Debug("stage interrupted by shutdown")
				return execErr
			}
			// The stage context was cut because the heartbeat lost the claim,
			// usually to a cancellation. Re-read and release if so.
			return m.handlePersistConflict(ctx, st, job,
				services.Wrap(services.ErrConflict, "workflow", st.name, "stage claim lost mid-execution", nil))
		}
		m.handleStageFailure(ctx, st, job, execErr)
		return execErr
	}

	job.LastHeartbeat = nil
	if err := m.persistWhileProcessing(ctx, st, job); err != nil {
		return m.handlePersistConflict(ctx, st, job, err)
	}
	if err := m.store.TransitionStatus(ctx, job.JobID, st.processingStatus, st.doneStatus); err != nil {
		return m.handlePersistConflict(ctx, st, job, err)
	}
	job.Status = st.doneStatus

	logger.Info("stage completed",
		logging.String("next_status", string(job.Status)),
		logging.Duration("stage_duration", time.Since(start)))
	return nil
}

// persistWhileProcessing saves job fields without touching the status
// column, and only while the job is still claimed by this worker.
func (m *Manager) persistWhileProcessing(ctx context.Context, st pipelineStage, job *queue.Job) error {
	return m.store.UpdateIfStatus(ctx, job, st.processingStatus)
}

// handlePersistConflict resolves a lost conditional update. The usual cause
// is cancellation, in which case staged content is released and the job is
// left alone.
func (m *Manager) handlePersistConflict(ctx context.Context, st pipelineStage, job *queue.Job, err error) error {
	if !errors.Is(err, services.ErrConflict) {
		m.setLastError(err)
		m.logger.Error("failed to persist stage progress",
			logging.String(logging.FieldJobID, job.JobID),
			logging.Error(err))
		return err
	}

	current, readErr := m.store.GetByJobID(ctx, job.JobID)
	if readErr != nil || current == nil {
		return err
	}
	if current.Status == queue.StatusCancelled {
		m.purgeBuffers(job)
		m.logger.Info("job cancelled mid-stage, staged content released",
			logging.String(logging.FieldJobID, job.JobID),
			logging.String(logging.FieldStage, st.name))
		return nil
	}
	m.logger.Warn("lost stage claim",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String(logging.FieldStage, st.name),
		logging.String("status", string(current.Status)))
	return err
}

// executeWithHeartbeat runs the handler while a heartbeat loop keeps the
// job's claim fresh. A heartbeat that loses the claim cancels the handler's
// context so no further work is scheduled for the job.
func (m *Manager) executeWithHeartbeat(ctx context.Context, st pipelineStage, job *queue.Job) error {
	execCtx, execCancel := context.WithCancel(ctx)
	defer execCancel()
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go func() {
		defer hbWG.Done()
		ticker := time.NewTicker(m.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				err := m.store.UpdateHeartbeat(hbCtx, job.JobID, st.processingStatus)
				if err == nil {
					continue
				}
				if errors.Is(err, services.ErrConflict) {
					execCancel()
					return
				}
				if !errors.Is(err, context.Canceled) {
					m.logger.Warn("heartbeat update failed",
						logging.String(logging.FieldJobID, job.JobID),
						logging.Error(err))
				}
			}
		}
	}()

	execErr := st.handler.Execute(execCtx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) purgeBuffers(job *queue.Job) {
	keys := job.BufferKeys()
	if len(keys) == 0 && job.BufferKey != "" {
		keys = []string{job.BufferKey}
	}
	m.buffers.Delete(keys...)
}
