package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"slate/internal/services"
)

// ErrDuplicateBuffer is returned when a submitted buffer key is already
// attached to a live job. Buffer keys are single-use.
var ErrDuplicateBuffer = errors.New("buffer key already attached to an active job")

// NewJobParams carries everything needed to enqueue a job.
type NewJobParams struct {
	OwnerID        string
	Format         string
	BufferKey      string
	IdempotencyKey string
	CallbackURL    string
	Priority       int
	MetadataJSON   string
}

// NewJob inserts a pending job. When an idempotency key is supplied and a
// job already exists for the same owner and key, the existing job is
// returned unchanged and existed is true. The insert and the uniqueness
// check race safely: a concurrent duplicate loses on the unique index and
// falls back to reading the winner's row.
func (s *Store) NewJob(ctx context.Context, params NewJobParams) (job *Job, existed bool, err error) {
	ctx = ensureContext(ctx)
	owner := strings.TrimSpace(params.OwnerID)
	if owner == "" {
		return nil, false, services.Wrap(services.ErrValidation, "queue", "new_job", "owner required", nil)
	}
	if strings.TrimSpace(params.BufferKey) == "" {
		return nil, false, services.Wrap(services.ErrValidation, "queue", "new_job", "buffer key required", nil)
	}

	idemKey := strings.TrimSpace(params.IdempotencyKey)
	if idemKey != "" {
		if existing, err := s.FindByIdempotencyKey(ctx, owner, idemKey); err != nil {
			return nil, false, err
		} else if existing != nil {
			return existing, true, nil
		}
	}

	if dup, err := s.bufferKeyInUse(ctx, params.BufferKey); err != nil {
		return nil, false, err
	} else if dup {
		return nil, false, services.Wrap(services.ErrConflict, "queue", "new_job", ErrDuplicateBuffer.Error(), ErrDuplicateBuffer)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	jobID := uuid.NewString()

	seed := &Job{JobID: jobID}
	seed.AttachBufferKey(params.BufferKey)

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            job_id, owner_id, status, priority, format, idempotency_key,
            buffer_key, buffer_keys_json, callback_url, metadata_json,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jobID,
		owner,
		StatusPending,
		params.Priority,
		params.Format,
		nullableString(idemKey),
		params.BufferKey,
		seed.BufferKeysJSON,
		nullableString(strings.TrimSpace(params.CallbackURL)),
		nullableString(params.MetadataJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		if idemKey != "" && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			existing, lookupErr := s.FindByIdempotencyKey(ctx, owner, idemKey)
			if lookupErr == nil && existing != nil {
				return existing, true, nil
			}
		}
		return nil, false, fmt.Errorf("insert job: %w", err)
	}

	created, err := s.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	return created, false, nil
}

// FindByIdempotencyKey returns the owner's job for an idempotency key, or
// nil when no such submission exists.
func (s *Store) FindByIdempotencyKey(ctx context.Context, owner, key string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE owner_id = ? AND idempotency_key = ? LIMIT 1`,
		owner,
		key,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by idempotency key: %w", err)
	}
	return job, nil
}

func (s *Store) bufferKeyInUse(ctx context.Context, bufferKey string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM jobs WHERE buffer_key = ? AND status NOT IN (?, ?, ?)`,
		bufferKey,
		StatusCompleted,
		StatusFailed,
		StatusCancelled,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check buffer key: %w", err)
	}
	return count > 0, nil
}

// GetByJobID fetches a job by its public identifier.
func (s *Store) GetByJobID(ctx context.Context, jobID string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetForOwner fetches a job only when owned by owner. A job owned by someone
// else is reported identically to a missing one.
func (s *Store) GetForOwner(ctx context.Context, owner, jobID string) (*Job, error) {
	job, err := s.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.OwnerID != owner {
		return nil, nil
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	ctx = ensureContext(ctx)
	job.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, priority = ?, format = ?, buffer_key = ?, buffer_keys_json = ?,
             callback_url = ?, report_id = ?, error_message = ?, progress_stage = ?,
             metadata_json = ?, updated_at = ?, completed_at = ?, last_heartbeat = ?
         WHERE job_id = ?`,
		job.Status,
		job.Priority,
		job.Format,
		nullableString(job.BufferKey),
		nullableString(job.BufferKeysJSON),
		nullableString(job.CallbackURL),
		nullableString(job.ReportID),
		nullableString(job.ErrorMessage),
		nullableString(job.ProgressStage),
		nullableString(job.MetadataJSON),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.CompletedAt),
		nullableTime(job.LastHeartbeat),
		job.JobID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// UpdateIfStatus persists job fields only while the job is still in the
// expected status. The status column itself is left untouched, so a
// concurrent cancellation is never overwritten. A lost race surfaces as
// ErrConflict.
func (s *Store) UpdateIfStatus(ctx context.Context, job *Job, expected Status) error {
	if job == nil {
		return errors.New("job is nil")
	}
	ctx = ensureContext(ctx)
	job.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET priority = ?, format = ?, buffer_key = ?, buffer_keys_json = ?,
             callback_url = ?, report_id = ?, error_message = ?, progress_stage = ?,
             metadata_json = ?, updated_at = ?, last_heartbeat = ?
         WHERE job_id = ? AND status = ?`,
		job.Priority,
		job.Format,
		nullableString(job.BufferKey),
		nullableString(job.BufferKeysJSON),
		nullableString(job.CallbackURL),
		nullableString(job.ReportID),
		nullableString(job.ErrorMessage),
		nullableString(job.ProgressStage),
		nullableString(job.MetadataJSON),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.LastHeartbeat),
		job.JobID,
		expected,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrConflict, "queue", "update",
			fmt.Sprintf("job %s is no longer %s", job.JobID, expected), nil)
	}
	return nil
}

// TransitionStatus moves a job from one status to another only when it is
// still in the expected status. A lost race surfaces as ErrConflict so the
// caller can re-read and decide.
func (s *Store) TransitionStatus(ctx context.Context, jobID string, from, to Status) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var completedAt any
	if to.IsTerminal() {
		completedAt = now
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ?,
            completed_at = COALESCE(?, completed_at)
         WHERE job_id = ? AND status = ?`,
		to,
		now,
		completedAt,
		jobID,
		from,
	)
	if err != nil {
		return fmt.Errorf("transition status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrConflict, "queue", "transition",
			fmt.Sprintf("job %s is no longer %s", jobID, from), nil)
	}
	return nil
}

// Cancel requests cancellation. Pending and in-flight jobs move to
// cancelled; cancelling a job that already reached a terminal status is a
// no-op, so owners only ever see success or not found.
func (s *Store) Cancel(ctx context.Context, owner, jobID string) error {
	ctx = ensureContext(ctx)
	job, err := s.GetForOwner(ctx, owner, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return services.Wrap(services.ErrNotFound, "queue", "cancel", "job not found", nil)
	}
	if job.Status.IsTerminal() {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	// Zero affected rows means the job finished between the read and the
	// update, which is the same no-op as reading it finished in the first
	// place.
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ?, completed_at = ?, last_heartbeat = NULL
         WHERE job_id = ? AND status NOT IN (?, ?)`,
		StatusCancelled,
		now,
		now,
		jobID,
		StatusCompleted,
		StatusFailed,
	); err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	return nil
}

// NextForStatuses returns the highest-priority, oldest job matching any of
// the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (` + placeholders + `) ORDER BY priority DESC, created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status.Public() {
		case PublicPending:
			health.Pending += count
		case PublicRunning:
			health.Running += count
		case PublicCompleted:
			health.Completed += count
		case PublicFailed:
			health.Failed += count
		case PublicCancelled:
			health.Cancelled += count
		}
	}
	return health, nil
}

const jobColumns = "id, job_id, owner_id, status, priority, format, idempotency_key, buffer_key, buffer_keys_json, callback_url, report_id, error_message, progress_stage, metadata_json, created_at, updated_at, completed_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               int64
		jobID            string
		ownerID          string
		statusStr        string
		priority         int
		format           sql.NullString
		idempotencyKey   sql.NullString
		bufferKey        sql.NullString
		bufferKeysJSON   sql.NullString
		callbackURL      sql.NullString
		reportID         sql.NullString
		errorMessage     sql.NullString
		progressStage    sql.NullString
		metadataJSON     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		completedRaw     sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&jobID,
		&ownerID,
		&statusStr,
		&priority,
		&format,
		&idempotencyKey,
		&bufferKey,
		&bufferKeysJSON,
		&callbackURL,
		&reportID,
		&errorMessage,
		&progressStage,
		&metadataJSON,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:             id,
		JobID:          jobID,
		OwnerID:        ownerID,
		Status:         Status(statusStr),
		Priority:       priority,
		Format:         format.String,
		IdempotencyKey: idempotencyKey.String,
		BufferKey:      bufferKey.String,
		BufferKeysJSON: bufferKeysJSON.String,
		CallbackURL:    callbackURL.String,
		ReportID:       reportID.String,
		ErrorMessage:   errorMessage.String,
		ProgressStage:  progressStage.String,
		MetadataJSON:   metadataJSON.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}
