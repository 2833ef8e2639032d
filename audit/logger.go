package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// Compile-time interface checks.
var (
	_ Hook            = (*Logger)(nil)
	_ JobQueued       = (*Logger)(nil)
	_ JobStarted      = (*Logger)(nil)
	_ JobCompleted    = (*Logger)(nil)
	_ JobFailed       = (*Logger)(nil)
	_ JobRetrying     = (*Logger)(nil)
	_ JobDeadLettered = (*Logger)(nil)
	_ JobCancelled    = (*Logger)(nil)
	_ Shutdown        = (*Logger)(nil)
)

// Logger is a hook that writes every job state transition to a
// slog.Logger. Normal transitions log at info, retries at warn, terminal
// failures at error.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates the slog-backed audit hook.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}

	return &Logger{logger: logger}
}

// Name implements Hook.
func (l *Logger) Name() string { return "audit.logger" }

func (l *Logger) attrs(j *job.Job) []any {
	attrs := []any{
		"job_id", j.ID.String(),
		"job_type", j.Type,
	}
	if j.CorrelationID != "" {
		attrs = append(attrs, "correlation_id", j.CorrelationID)
	}

	return attrs
}

// OnJobQueued implements JobQueued.
func (l *Logger) OnJobQueued(ctx context.Context, j *job.Job) error {
	l.logger.InfoContext(ctx, "job queued", l.attrs(j)...)

	return nil
}

// OnJobStarted implements JobStarted.
func (l *Logger) OnJobStarted(ctx context.Context, j *job.Job, attempt int) error {
	l.logger.InfoContext(ctx, "job started", append(l.attrs(j), "attempt", attempt)...)

	return nil
}

// OnJobCompleted implements JobCompleted.
func (l *Logger) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	l.logger.InfoContext(ctx, "job completed", append(l.attrs(j), "elapsed", elapsed)...)

	return nil
}

// OnJobFailed implements JobFailed.
func (l *Logger) OnJobFailed(ctx context.Context, j *job.Job, errMsg string) error {
	l.logger.ErrorContext(ctx, "job failed", append(l.attrs(j), "error", errMsg)...)

	return nil
}

// OnJobRetrying implements JobRetrying.
func (l *Logger) OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error {
	l.logger.WarnContext(ctx, "job retrying",
		append(l.attrs(j), "attempt", attempt, "max_retries", j.MaxRetries, "next_run_at", nextRunAt)...)

	return nil
}

// OnJobDeadLettered implements JobDeadLettered.
func (l *Logger) OnJobDeadLettered(ctx context.Context, j *job.Job, errMsg string) error {
	l.logger.ErrorContext(ctx, "job dead-lettered",
		append(l.attrs(j), "retry_count", j.RetryCount, "error", errMsg)...)

	return nil
}

// OnJobCancelled implements JobCancelled.
func (l *Logger) OnJobCancelled(ctx context.Context, j *job.Job) error {
	l.logger.InfoContext(ctx, "job cancelled", l.attrs(j)...)

	return nil
}

// OnShutdown implements Shutdown.
func (l *Logger) OnShutdown(ctx context.Context) error {
	l.logger.InfoContext(ctx, "engine shutting down")

	return nil
}
