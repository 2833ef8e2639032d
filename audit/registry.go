package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// Named entry types pair a hook implementation with the name captured at
// registration time. This avoids type-asserting back to Hook inside the
// emit methods.
type jobQueuedEntry struct {
	name string
	hook JobQueued
}

type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobCompletedEntry struct {
	name string
	hook JobCompleted
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type jobRetryingEntry struct {
	name string
	hook JobRetrying
}

type jobDeadLetteredEntry struct {
	name string
	hook JobDeadLettered
}

type jobCancelledEntry struct {
	name string
	hook JobCancelled
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered hooks and dispatches lifecycle events to
// them. It type-caches hooks at registration time so emit calls iterate
// only over hooks that implement the relevant event. Emission is
// fire-and-forget: hook errors are logged, never propagated.
type Registry struct {
	hooks  []Hook
	logger *slog.Logger

	// Type-cached slices for each lifecycle event.
	jobQueued       []jobQueuedEntry
	jobStarted      []jobStartedEntry
	jobCompleted    []jobCompletedEntry
	jobFailed       []jobFailedEntry
	jobRetrying     []jobRetryingEntry
	jobDeadLettered []jobDeadLetteredEntry
	jobCancelled    []jobCancelledEntry
	shutdown        []shutdownEntry
}

// NewRegistry creates a hook registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{logger: logger}
}

// Register adds a hook and type-asserts it into all applicable event
// caches. Hooks are notified in registration order. Register is not safe
// to call after the engine starts emitting.
func (r *Registry) Register(h Hook) {
	r.hooks = append(r.hooks, h)
	name := h.Name()

	if hook, ok := h.(JobQueued); ok {
		r.jobQueued = append(r.jobQueued, jobQueuedEntry{name, hook})
	}
	if hook, ok := h.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, hook})
	}
	if hook, ok := h.(JobCompleted); ok {
		r.jobCompleted = append(r.jobCompleted, jobCompletedEntry{name, hook})
	}
	if hook, ok := h.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name, hook})
	}
	if hook, ok := h.(JobRetrying); ok {
		r.jobRetrying = append(r.jobRetrying, jobRetryingEntry{name, hook})
	}
	if hook, ok := h.(JobDeadLettered); ok {
		r.jobDeadLettered = append(r.jobDeadLettered, jobDeadLetteredEntry{name, hook})
	}
	if hook, ok := h.(JobCancelled); ok {
		r.jobCancelled = append(r.jobCancelled, jobCancelledEntry{name, hook})
	}
	if hook, ok := h.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, hook})
	}
}

// Hooks returns the registered hooks in registration order.
func (r *Registry) Hooks() []Hook {
	return r.hooks
}

func (r *Registry) hookErr(event, name string, err error) {
	if err != nil {
		r.logger.Error("audit hook failed", "event", event, "hook", name, "error", err)
	}
}

// EmitJobQueued notifies JobQueued hooks.
func (r *Registry) EmitJobQueued(ctx context.Context, j *job.Job) {
	for _, e := range r.jobQueued {
		r.hookErr("job.queued", e.name, e.hook.OnJobQueued(ctx, j))
	}
}

// EmitJobStarted notifies JobStarted hooks.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job, attempt int) {
	for _, e := range r.jobStarted {
		r.hookErr("job.started", e.name, e.hook.OnJobStarted(ctx, j, attempt))
	}
}

// EmitJobCompleted notifies JobCompleted hooks.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	for _, e := range r.jobCompleted {
		r.hookErr("job.completed", e.name, e.hook.OnJobCompleted(ctx, j, elapsed))
	}
}

// EmitJobFailed notifies JobFailed hooks.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, errMsg string) {
	for _, e := range r.jobFailed {
		r.hookErr("job.failed", e.name, e.hook.OnJobFailed(ctx, j, errMsg))
	}
}

// EmitJobRetrying notifies JobRetrying hooks.
func (r *Registry) EmitJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) {
	for _, e := range r.jobRetrying {
		r.hookErr("job.retrying", e.name, e.hook.OnJobRetrying(ctx, j, attempt, nextRunAt))
	}
}

// EmitJobDeadLettered notifies JobDeadLettered hooks.
func (r *Registry) EmitJobDeadLettered(ctx context.Context, j *job.Job, errMsg string) {
	for _, e := range r.jobDeadLettered {
		r.hookErr("job.dead_lettered", e.name, e.hook.OnJobDeadLettered(ctx, j, errMsg))
	}
}

// EmitJobCancelled notifies JobCancelled hooks.
func (r *Registry) EmitJobCancelled(ctx context.Context, j *job.Job) {
	for _, e := range r.jobCancelled {
		r.hookErr("job.cancelled", e.name, e.hook.OnJobCancelled(ctx, j))
	}
}

// EmitShutdown notifies Shutdown hooks.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		r.hookErr("shutdown", e.name, e.hook.OnShutdown(ctx))
	}
}
