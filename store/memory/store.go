// Package memory provides a fully in-memory store backend.
// Safe for concurrent access. It is the engine's default backend and is
// intended for testing, development, and single-process deployments that
// accept losing state on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/dlq"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// Ensure Store implements every subsystem store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ job.StatusStore = (*Store)(nil)
	_ dlq.Store       = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	statuses map[string]*job.StatusInfo
	attempts map[string][]*job.Attempt
	dlqs     map[string]*dlq.Entry
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		statuses: make(map[string]*job.StatusInfo),
		attempts: make(map[string][]*job.Attempt),
		dlqs:     make(map[string]*dlq.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Status Store
// ──────────────────────────────────────────────────

// SetStatus upserts a status record. A record already in a terminal
// status is never overwritten.
func (m *Store) SetStatus(_ context.Context, info *job.StatusInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := info.JobID.String()
	if existing, ok := m.statuses[key]; ok && existing.Status.Terminal() {
		return nil
	}

	cp := *info
	m.statuses[key] = &cp

	return nil
}

// GetStatus retrieves a status record by job ID.
func (m *Store) GetStatus(_ context.Context, jobID id.ID) (*job.StatusInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.statuses[jobID.String()]
	if !ok {
		return nil, copilot.ErrJobNotFound
	}

	// Return a copy so callers can mutate without racing with the store.
	cp := *info

	return &cp, nil
}

// DeleteStatus removes a status record and its attempts.
func (m *Store) DeleteStatus(_ context.Context, jobID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := jobID.String()
	if _, ok := m.statuses[key]; !ok {
		return copilot.ErrJobNotFound
	}

	delete(m.statuses, key)
	delete(m.attempts, key)

	return nil
}

// ListByStatus returns records with the given status, newest first.
func (m *Store) ListByStatus(ctx context.Context, status job.Status, opts job.ListOpts) ([]*job.StatusInfo, error) {
	return m.List(ctx, job.Filter{Status: status, ListOpts: opts})
}

// ListByType returns records with the given job type, newest first.
func (m *Store) ListByType(ctx context.Context, jobType string, opts job.ListOpts) ([]*job.StatusInfo, error) {
	return m.List(ctx, job.Filter{Type: jobType, ListOpts: opts})
}

// ListBySource returns records with the given source, newest first.
func (m *Store) ListBySource(ctx context.Context, source string, opts job.ListOpts) ([]*job.StatusInfo, error) {
	return m.List(ctx, job.Filter{Source: source, ListOpts: opts})
}

// List returns records matching the combined filter, newest first.
func (m *Store) List(_ context.Context, f job.Filter) ([]*job.StatusInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*job.StatusInfo, 0, len(m.statuses))
	for _, info := range m.statuses {
		if !f.Matches(info) {
			continue
		}
		cp := *info
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		if !result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].CreatedAt.After(result[k].CreatedAt)
		}

		return result[i].JobID.String() > result[k].JobID.String()
	})

	return paginate(result, f.Offset, f.Limit), nil
}

// AppendAttempt records one execution attempt for a job.
func (m *Store) AppendAttempt(_ context.Context, att *job.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *att
	key := att.JobID.String()
	m.attempts[key] = append(m.attempts[key], &cp)

	return nil
}

// ListAttempts returns a job's attempts in execution order.
func (m *Store) ListAttempts(_ context.Context, jobID id.ID) ([]*job.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.attempts[jobID.String()]
	result := make([]*job.Attempt, len(stored))
	for i, att := range stored {
		cp := *att
		result[i] = &cp
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].Number < result[k].Number
	})

	return result, nil
}

// Metrics aggregates all status records. Recomputed on each call.
func (m *Store) Metrics(_ context.Context) (*job.Metrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]*job.StatusInfo, 0, len(m.statuses))
	for _, info := range m.statuses {
		infos = append(infos, info)
	}

	return job.ComputeMetrics(infos), nil
}

// ──────────────────────────────────────────────────
// DLQ Store
// ──────────────────────────────────────────────────

// PushDLQ adds a failed job entry to the dead letter queue.
func (m *Store) PushDLQ(_ context.Context, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.dlqs[entry.ID.String()] = &cp

	return nil
}

// ListDLQ returns DLQ entries matching the given options, oldest failure
// first.
func (m *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*dlq.Entry, 0, len(m.dlqs))
	for _, e := range m.dlqs {
		if opts.JobType != "" && e.JobType != opts.JobType {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].FailedAt.Before(result[k].FailedAt)
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// GetDLQ retrieves a DLQ entry by ID.
func (m *Store) GetDLQ(_ context.Context, entryID id.ID) (*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.dlqs[entryID.String()]
	if !ok {
		return nil, copilot.ErrDLQNotFound
	}

	cp := *e

	return &cp, nil
}

// ReplayDLQ marks a DLQ entry as replayed.
func (m *Store) ReplayDLQ(_ context.Context, entryID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.dlqs[entryID.String()]
	if !ok {
		return copilot.ErrDLQNotFound
	}

	now := time.Now().UTC()
	e.ReplayedAt = &now

	return nil
}

// PurgeDLQ removes DLQ entries with FailedAt before the given time.
func (m *Store) PurgeDLQ(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for key, e := range m.dlqs {
		if e.FailedAt.Before(before) {
			delete(m.dlqs, key)
			count++
		}
	}

	return count, nil
}

// CountDLQ returns the total number of entries in the dead letter queue.
func (m *Store) CountDLQ(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.dlqs)), nil
}

// paginate applies offset/limit to an already-sorted slice.
func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items
}
