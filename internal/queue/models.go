package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the fine-grained internal lifecycle of a job.
type Status string

const (
	StatusPending     Status = "pending"
	StatusParsing     Status = "parsing"
	StatusParsed      Status = "parsed"
	StatusAnalyzing   Status = "analyzing"
	StatusAnalyzed    Status = "analyzed"
	StatusAggregating Status = "aggregating"
	StatusAggregated  Status = "aggregated"
	StatusDelivering  Status = "delivering"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// PublicStatus is the coarse status exposed to job owners.
type PublicStatus string

const (
	PublicPending   PublicStatus = "pending"
	PublicRunning   PublicStatus = "running"
	PublicCompleted PublicStatus = "completed"
	PublicFailed    PublicStatus = "failed"
	PublicCancelled PublicStatus = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusParsing,
	StatusParsed,
	StatusAnalyzing,
	StatusAnalyzed,
	StatusAggregating,
	StatusAggregated,
	StatusDelivering,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusParsing:     {},
	StatusAnalyzing:   {},
	StatusAggregating: {},
	StatusDelivering:  {},
}

type statusTransition struct {
	from Status
	to   Status
}

// Reclaim puts a job back at the start of the stage it died in, never
// further back.
var stageRollbackTransitions = []statusTransition{
	{from: StatusParsing, to: StatusPending},
	{from: StatusAnalyzing, to: StatusParsed},
	{from: StatusAggregating, to: StatusAnalyzed},
	{from: StatusDelivering, to: StatusAggregated},
}

// Public maps an internal status to the owner-visible one.
func (s Status) Public() PublicStatus {
	switch s {
	case StatusPending:
		return PublicPending
	case StatusCompleted:
		return PublicCompleted
	case StatusFailed:
		return PublicFailed
	case StatusCancelled:
		return PublicCancelled
	default:
		return PublicRunning
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// Job is a persisted safety-check job.
type Job struct {
	ID             int64
	JobID          string
	OwnerID        string
	Status         Status
	Priority       int
	Format         string
	IdempotencyKey string
	BufferKey      string
	BufferKeysJSON string
	CallbackURL    string
	ReportID       string
	ErrorMessage   string
	ProgressStage  string
	MetadataJSON   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
	LastHeartbeat  *time.Time
}

// IsProcessing reports whether the job is mid-stage.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// BufferKeys returns every buffer key ever attached to the job, in
// attachment order. The list drives purge on completion and failure.
func (j Job) BufferKeys() []string {
	if strings.TrimSpace(j.BufferKeysJSON) == "" {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(j.BufferKeysJSON), &keys); err != nil {
		return nil
	}
	return keys
}

// AttachBufferKey records a new buffer key and makes it the current input.
func (j *Job) AttachBufferKey(key string) {
	keys := append(j.BufferKeys(), key)
	encoded, err := json.Marshal(keys)
	if err == nil {
		j.BufferKeysJSON = string(encoded)
	}
	j.BufferKey = key
}

// Metadata decodes the job's metadata document.
func (j Job) Metadata() map[string]any {
	meta := map[string]any{}
	if strings.TrimSpace(j.MetadataJSON) == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(j.MetadataJSON), &meta); err != nil {
		return map[string]any{}
	}
	return meta
}

// SetMetadataValue updates one key in the metadata document.
func (j *Job) SetMetadataValue(key string, value any) {
	meta := j.Metadata()
	meta[key] = value
	if encoded, err := json.Marshal(meta); err == nil {
		j.MetadataJSON = string(encoded)
	}
}

// SetFailed marks the job failed with a terminal error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.LastHeartbeat = nil
	j.ProgressStage = "failed"
}

// Report is a persisted safety report awaiting retrieval.
type Report struct {
	ID             int64
	ReportID       string
	JobID          string
	OwnerID        string
	FindingsJSON   string
	RiskSummary    string
	ProcessingTime float64
	MetadataJSON   string
	IsRetrieved    bool
	CreatedAt      time.Time
	RetrievedAt    *time.Time
}

// HealthSummary describes aggregated queue counts per key lifecycle state.
type HealthSummary struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}
