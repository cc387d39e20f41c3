package queue

import (
	"context"
	"fmt"
	"time"

	"slate/internal/services"
)

// ResetStuckProcessing returns jobs stuck mid-stage to the start of their
// current stage. Used at daemon startup to recover from an unclean stop.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             progress_stage = 'reset from stuck processing',
             last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?, ?, ?)`,
		StatusParsing, StatusPending,
		StatusAnalyzing, StatusParsed,
		StatusAggregating, StatusAnalyzed,
		StatusDelivering, StatusAggregated,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusParsing,
		StatusAnalyzing,
		StatusAggregating,
		StatusDelivering,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat refreshes the heartbeat timestamp while the job is still
// held in the expected processing status. A cancelled or reclaimed job
// surfaces as ErrConflict so the worker can stop its in-flight work.
func (s *Store) UpdateHeartbeat(ctx context.Context, jobID string, expected Status) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE job_id = ? AND status = ?`,
		now,
		now,
		jobID,
		expected,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrConflict, "queue", "heartbeat",
			fmt.Sprintf("job %s is no longer %s", jobID, expected), nil)
	}
	return nil
}

// ReclaimStaleProcessing rolls jobs with expired heartbeats back to the
// start of their current stage so another worker can pick them up.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = CASE status
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            ELSE status
        END,
            progress_stage = 'reclaimed from stale processing',
            last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?, ?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusParsing, StatusPending,
		StatusAnalyzing, StatusParsed,
		StatusAggregating, StatusAnalyzed,
		StatusDelivering, StatusAggregated,
		now.Format(time.RFC3339Nano),
		StatusParsing,
		StatusAnalyzing,
		StatusAggregating,
		StatusDelivering,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearFinished removes completed, failed, and cancelled jobs older than the
// retention window. Their reports are swept separately.
func (s *Store) ClearFinished(ctx context.Context, retention time.Duration) (int64, error) {
	ctx = ensureContext(ctx)
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE status IN (?, ?, ?) AND updated_at < ?`,
		StatusCompleted,
		StatusFailed,
		StatusCancelled,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("clear finished jobs: %w", err)
	}
	return res.RowsAffected()
}
