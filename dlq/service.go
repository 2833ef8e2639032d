package dlq

import (
	"context"
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// Admitter dispatches a job through the engine's admission path.
// It is the same contract the dispatcher exposes; a local interface keeps
// this package free of a dispatch dependency.
type Admitter interface {
	Dispatch(ctx context.Context, j *job.Job) error
}

// Service provides high-level DLQ operations over a Store.
type Service struct {
	store    Store
	admitter Admitter
}

// NewService creates a DLQ service. admitter may be nil when replay is
// not needed (inspection-only use).
func NewService(store Store, admitter Admitter) *Service {
	return &Service{store: store, admitter: admitter}
}

// Push builds a DLQ Entry from a dead-lettered job and persists it.
// errMsg is the final attempt's error message.
func (s *Service) Push(ctx context.Context, j *job.Job, errMsg string) error {
	now := time.Now().UTC()
	entry := &Entry{
		ID:            id.NewDLQID(),
		JobID:         j.ID,
		JobType:       j.Type,
		Payload:       j.Payload,
		Error:         errMsg,
		RetryCount:    j.RetryCount,
		MaxRetries:    j.MaxRetries,
		Priority:      j.Priority,
		Source:        j.Source,
		CorrelationID: j.CorrelationID,
		Metadata:      j.Metadata,
		FailedAt:      now,
		CreatedAt:     now,
	}

	return s.store.PushDLQ(ctx, entry)
}

// Replay dispatches a DLQ entry as a fresh job and marks the entry as
// replayed. The new job gets a fresh ID, zero retry count, and runs
// immediately with source "replay".
func (s *Service) Replay(ctx context.Context, entryID id.ID) (*job.Job, error) {
	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return nil, err
	}

	j := job.New(entry.JobType, entry.Payload,
		job.WithMaxRetries(entry.MaxRetries),
		job.WithPriority(entry.Priority),
		job.WithCorrelationID(entry.CorrelationID),
		job.WithMetadata(entry.Metadata),
		job.WithSource("replay"),
	)

	if err := s.admitter.Dispatch(ctx, j); err != nil {
		return nil, err
	}

	if err := s.store.ReplayDLQ(ctx, entryID); err != nil {
		// The job is already dispatched; surface the bookkeeping error
		// alongside the new job.
		return j, err
	}

	return j, nil
}

// List returns DLQ entries matching the given options.
func (s *Service) List(ctx context.Context, opts ListOpts) ([]*Entry, error) {
	return s.store.ListDLQ(ctx, opts)
}

// Get retrieves a DLQ entry by ID.
func (s *Service) Get(ctx context.Context, entryID id.ID) (*Entry, error) {
	return s.store.GetDLQ(ctx, entryID)
}

// Purge removes entries that failed before the given time. Returns the
// number removed.
func (s *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	return s.store.PurgeDLQ(ctx, before)
}

// Count returns the total number of DLQ entries.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.CountDLQ(ctx)
}
