package job

import (
	"context"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
)

// ListOpts controls pagination for status list queries.
type ListOpts struct {
	// Limit is the maximum number of records to return. Zero means no limit.
	Limit int
	// Offset is the number of records to skip.
	Offset int
}

// Filter combines optional status, type, and source predicates with
// pagination. Zero-value fields match everything.
type Filter struct {
	Status Status
	Type   string
	Source string
	ListOpts
}

// Matches reports whether the status record satisfies the filter
// predicates (pagination excluded).
func (f Filter) Matches(s *StatusInfo) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	if f.Source != "" && s.Source != f.Source {
		return false
	}

	return true
}

// StatusStore defines the persistence contract for job status records and
// attempt history. Implementations must be safe for concurrent use.
type StatusStore interface {
	// SetStatus upserts a status record. Writes are last-write-wins per
	// JobID, except that a record already in a terminal status is never
	// overwritten; such writes are silently ignored.
	SetStatus(ctx context.Context, info *StatusInfo) error

	// GetStatus retrieves the status record for a job.
	// Returns copilot.ErrJobNotFound when absent.
	GetStatus(ctx context.Context, jobID id.ID) (*StatusInfo, error)

	// DeleteStatus removes a status record and its attempts. Deletion is
	// always caller-invoked; the engine never deletes records itself.
	DeleteStatus(ctx context.Context, jobID id.ID) error

	// ListByStatus returns records with the given status, newest first.
	ListByStatus(ctx context.Context, status Status, opts ListOpts) ([]*StatusInfo, error)

	// ListByType returns records with the given job type, newest first.
	ListByType(ctx context.Context, jobType string, opts ListOpts) ([]*StatusInfo, error)

	// ListBySource returns records with the given source, newest first.
	ListBySource(ctx context.Context, source string, opts ListOpts) ([]*StatusInfo, error)

	// List returns records matching the combined filter, newest first.
	List(ctx context.Context, f Filter) ([]*StatusInfo, error)

	// AppendAttempt records one execution attempt for a job.
	AppendAttempt(ctx context.Context, att *Attempt) error

	// ListAttempts returns a job's attempts in execution order.
	ListAttempts(ctx context.Context, jobID id.ID) ([]*Attempt, error)

	// Metrics aggregates counts, durations, and failure rate across all
	// records, overall and per job type. Recomputed on each call.
	Metrics(ctx context.Context) (*Metrics, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
