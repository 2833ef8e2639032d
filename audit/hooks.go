package audit

import (
	"context"
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// Hook is the base interface all lifecycle hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobQueued is called after a job is successfully dispatched.
type JobQueued interface {
	OnJobQueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a worker begins executing a job.
// attempt is 1-indexed.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job, attempt int) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job fails terminally without exhausting
// retries (the handler marked the failure non-retryable, or retries are
// disabled).
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, errMsg string) error
}

// JobRetrying is called when a job fails and is re-enqueued.
// attempt is the retry number just consumed; nextRunAt is when the job
// becomes eligible again.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
}

// JobDeadLettered is called when a job exhausts its retry budget.
type JobDeadLettered interface {
	OnJobDeadLettered(ctx context.Context, j *job.Job, errMsg string) error
}

// JobCancelled is called when a job is cancelled before reaching a
// terminal state.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}

// Shutdown is called during graceful engine shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
