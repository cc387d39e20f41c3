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

// SaveReport persists a finished report. Each job gets exactly one report;
// a second save for the same job is a conflict.
func (s *Store) SaveReport(ctx context.Context, report *Report) error {
	if report == nil {
		return errors.New("report is nil")
	}
	ctx = ensureContext(ctx)
	if strings.TrimSpace(report.ReportID) == "" {
		report.ReportID = uuid.NewString()
	}
	now := time.Now().UTC()
	report.CreatedAt = now

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO reports (
            report_id, job_id, owner_id, findings_json, risk_summary,
            processing_time, metadata_json, is_retrieved, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		report.ReportID,
		report.JobID,
		report.OwnerID,
		report.FindingsJSON,
		report.RiskSummary,
		report.ProcessingTime,
		nullableString(report.MetadataJSON),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return services.Wrap(services.ErrConflict, "queue", "save_report",
				fmt.Sprintf("report already exists for job %s", report.JobID), nil)
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// TakeReport retrieves a report exactly once by its report ID. The claim is a
// single conditional update, so of any number of concurrent callers exactly
// one receives the report; the rest see it as gone. A report owned by someone
// else is reported as not found.
func (s *Store) TakeReport(ctx context.Context, owner, reportID string) (*Report, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`UPDATE reports SET is_retrieved = 1, retrieved_at = ?
         WHERE report_id = ? AND owner_id = ? AND is_retrieved = 0`,
		now,
		reportID,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("claim report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}

	if affected == 1 {
		report, err := s.reportByID(ctx, reportID)
		if err != nil {
			return nil, err
		}
		if report == nil {
			return nil, services.Wrap(services.ErrNotFound, "queue", "take_report", "report vanished after claim", nil)
		}
		return report, nil
	}

	// Claim lost: either the report never existed, belongs to someone else,
	// or was already retrieved.
	report, err := s.reportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil || report.OwnerID != owner {
		return nil, services.Wrap(services.ErrNotFound, "queue", "take_report", "report not found", nil)
	}
	return nil, services.Wrap(services.ErrGone, "queue", "take_report", "report already retrieved", nil)
}

func (s *Store) reportByID(ctx context.Context, reportID string) (*Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE report_id = ?`, reportID)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// SweepReports removes retrieved reports and unclaimed reports older than
// the retention window. Returns the count removed.
func (s *Store) SweepReports(ctx context.Context, retention time.Duration) (int64, error) {
	ctx = ensureContext(ctx)
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM reports WHERE is_retrieved = 1 OR created_at < ?`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep reports: %w", err)
	}
	return res.RowsAffected()
}

const reportColumns = "id, report_id, job_id, owner_id, findings_json, risk_summary, processing_time, metadata_json, is_retrieved, created_at, retrieved_at"

func scanReport(scanner interface{ Scan(dest ...any) error }) (*Report, error) {
	var (
		id             int64
		reportID       string
		jobID          string
		ownerID        string
		findingsJSON   string
		riskSummary    string
		processingTime float64
		metadataJSON   sql.NullString
		isRetrieved    int
		createdRaw     sql.NullString
		retrievedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&reportID,
		&jobID,
		&ownerID,
		&findingsJSON,
		&riskSummary,
		&processingTime,
		&metadataJSON,
		&isRetrieved,
		&createdRaw,
		&retrievedRaw,
	); err != nil {
		return nil, err
	}

	report := &Report{
		ID:             id,
		ReportID:       reportID,
		JobID:          jobID,
		OwnerID:        ownerID,
		FindingsJSON:   findingsJSON,
		RiskSummary:    riskSummary,
		ProcessingTime: processingTime,
		MetadataJSON:   metadataJSON.String,
		IsRetrieved:    isRetrieved != 0,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		report.CreatedAt = created
	}
	if retrievedRaw.Valid {
		if retrieved, err := parseTimeString(retrievedRaw.String); err == nil {
			report.RetrievedAt = &retrieved
		}
	}
	return report, nil
}
