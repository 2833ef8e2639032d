package job

import (
	"time"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
)

// Status represents the lifecycle status of a job.
type Status string

const (
	// StatusQueued means the job is waiting to be picked up by a worker.
	StatusQueued Status = "queued"
	// StatusProcessing means a worker is currently executing the job.
	StatusProcessing Status = "processing"
	// StatusCompleted means the job finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the job failed and will not be retried.
	StatusFailed Status = "failed"
	// StatusCancelled means the job was explicitly cancelled.
	StatusCancelled Status = "cancelled"
	// StatusRetried means the job failed and has been re-enqueued.
	StatusRetried Status = "retried"
	// StatusDeadLetter means the job exhausted its retry budget.
	StatusDeadLetter Status = "dead_letter"
)

// Terminal reports whether s is a terminal status. Terminal records never
// transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusDeadLetter:
		return true
	default:
		return false
	}
}

// Job represents a unit of work to be processed by a worker.
// Bookkeeping fields (RetryCount, ScheduledFor) are owned exclusively by
// the engine once the job is dispatched.
type Job struct {
	copilot.Entity

	ID            id.ID             `json:"id"`
	Type          string            `json:"type"`
	Payload       []byte            `json:"payload"`
	Priority      int               `json:"priority"`
	MaxRetries    int               `json:"max_retries"`
	RetryCount    int               `json:"retry_count"`
	ScheduledFor  time.Time         `json:"scheduled_for,omitempty"`
	Timeout       time.Duration     `json:"timeout,omitempty"`
	DedupKey      string            `json:"dedup_key,omitempty"`
	Source        string            `json:"source,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	ParentID      id.ID             `json:"parent_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// New creates a Job of the given type with an opaque payload.
func New(jobType string, payload []byte, opts ...Option) *Job {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Job{
		Entity:        copilot.NewEntity(),
		ID:            id.NewJobID(),
		Type:          jobType,
		Payload:       payload,
		Priority:      o.Priority,
		MaxRetries:    o.MaxRetries,
		ScheduledFor:  o.ScheduledFor,
		Timeout:       o.Timeout,
		DedupKey:      o.DedupKey,
		Source:        o.Source,
		CorrelationID: o.CorrelationID,
		ParentID:      o.ParentID,
		Metadata:      o.Metadata,
	}
}

// Ready reports whether the job is eligible for dequeue at the given time.
func (j *Job) Ready(now time.Time) bool {
	return j.ScheduledFor.IsZero() || !now.Before(j.ScheduledFor)
}

// StatusInfo is the externally queryable lifecycle record, one-to-one with
// a Job by JobID. It is created at dispatch time and mutated by the engine
// on every transition. It is never deleted automatically.
type StatusInfo struct {
	JobID         id.ID             `json:"job_id"`
	Type          string            `json:"type"`
	Status        Status            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	StartedAt     *time.Time        `json:"started_at,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	LastRetryAt   *time.Time        `json:"last_retry_at,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	ResultData    []byte            `json:"result_data,omitempty"`
	RetryCount    int               `json:"retry_count"`
	MaxRetries    int               `json:"max_retries"`
	Source        string            `json:"source,omitempty"`
	ParentID      id.ID             `json:"parent_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewStatusInfo builds the initial queued record for a job.
func NewStatusInfo(j *Job) *StatusInfo {
	return &StatusInfo{
		JobID:         j.ID,
		Type:          j.Type,
		Status:        StatusQueued,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.CreatedAt,
		RetryCount:    j.RetryCount,
		MaxRetries:    j.MaxRetries,
		Source:        j.Source,
		ParentID:      j.ParentID,
		CorrelationID: j.CorrelationID,
		Metadata:      j.Metadata,
	}
}

// ProcessingDuration returns the time spent between start and terminal
// transition. Zero when the job has not finished.
func (s *StatusInfo) ProcessingDuration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}

	return s.CompletedAt.Sub(*s.StartedAt)
}

// QueueWait returns the time spent between creation and first pickup.
// Zero when the job has not started.
func (s *StatusInfo) QueueWait() time.Duration {
	if s.StartedAt == nil {
		return 0
	}

	return s.StartedAt.Sub(s.CreatedAt)
}

// Attempt is an append-only record of one execution attempt. Numbers are
// 1-indexed: a job that fails twice and then succeeds has three attempts.
type Attempt struct {
	ID         id.ID         `json:"id"`
	JobID      id.ID         `json:"job_id"`
	Number     int           `json:"number"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Delay      time.Duration `json:"delay,omitempty"`
	Strategy   string        `json:"strategy,omitempty"`
}

// Duration returns how long the attempt ran.
func (a *Attempt) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}
