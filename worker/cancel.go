package worker

import (
	"context"
	"sync"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
)

// Canceller tracks cancellation requests and the cancel functions of
// jobs currently executing. A request against a running job cancels its
// context immediately; a request against a queued job is remembered and
// honored when the job is dequeued, before its handler ever runs.
type Canceller struct {
	mu        sync.Mutex
	running   map[string]context.CancelFunc
	requested map[string]struct{}
}

// NewCanceller creates an empty Canceller.
func NewCanceller() *Canceller {
	return &Canceller{
		running:   make(map[string]context.CancelFunc),
		requested: make(map[string]struct{}),
	}
}

// Track registers the cancel function for a job entering execution. If
// a cancellation request already landed for the job, the context is
// cancelled immediately, so a request arriving between the queued-job
// check and Track still stops the handler.
func (c *Canceller) Track(jobID id.ID, cancel context.CancelFunc) {
	c.mu.Lock()
	key := jobID.String()
	c.running[key] = cancel
	_, requested := c.requested[key]
	c.mu.Unlock()

	if requested {
		cancel()
	}
}

// Untrack removes a job's cancel function after execution finishes.
func (c *Canceller) Untrack(jobID id.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.running, jobID.String())
}

// RequestCancel records a cancellation request. If the job is currently
// executing its context is cancelled; the returned bool reports whether
// that happened.
func (c *Canceller) RequestCancel(jobID id.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := jobID.String()
	c.requested[key] = struct{}{}

	if cancel, ok := c.running[key]; ok {
		cancel()
		return true
	}
	return false
}

// Cancelled reports whether cancellation was requested for the job.
func (c *Canceller) Cancelled(jobID id.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.requested[jobID.String()]
	return ok
}

// Clear forgets a cancellation request once it has been honored.
func (c *Canceller) Clear(jobID id.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.requested, jobID.String())
}

// CancelAll cancels the contexts of every running job. Used when a
// graceful drain exceeds its deadline.
func (c *Canceller) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.running {
		cancel()
	}
}
