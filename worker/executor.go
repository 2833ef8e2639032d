// Package worker provides the job execution engine — an Executor that
// runs dequeued jobs through middleware and their registered handler and
// settles the outcome (complete, retry, fail, dead-letter), and a
// Processor that manages the concurrent worker goroutines consuming the
// queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/audit"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/backoff"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/dedup"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/dlq"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/middleware"
)

// Requeuer re-admits a retried job into the queue. Satisfied by
// queue.Queue.
type Requeuer interface {
	Enqueue(j *job.Job) error
}

// Executor runs a single job through middleware and the registered
// handler, then settles the attempt: state update, attempt record,
// backoff scheduling, DLQ push, dedup release, and lifecycle events.
type Executor struct {
	registry  *job.Registry
	store     job.StatusStore
	dlqSvc    *dlq.Service
	dedup     *dedup.Service
	hooks     *audit.Registry
	calc      *backoff.Calculator
	policy    backoff.Policy
	requeue   Requeuer
	canceller *Canceller
	mw        middleware.Middleware
	logger    *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	registry *job.Registry,
	store job.StatusStore,
	dlqSvc *dlq.Service,
	dedupSvc *dedup.Service,
	hooks *audit.Registry,
	calc *backoff.Calculator,
	policy backoff.Policy,
	requeue Requeuer,
	canceller *Canceller,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	return &Executor{
		registry:  registry,
		store:     store,
		dlqSvc:    dlqSvc,
		dedup:     dedupSvc,
		hooks:     hooks,
		calc:      calc,
		policy:    policy,
		requeue:   requeue,
		canceller: canceller,
		mw:        middleware.Chain(mws...),
		logger:    logger,
	}
}

// Execute runs one attempt of a job and settles its outcome.
//
// On success the job is marked completed. On a retryable failure with
// retries remaining it is marked retried and re-enqueued with a backoff
// delay. A non-retryable failure marks it failed; exhausted retries
// dead-letter it. When cancellation was requested mid-run the job is
// marked cancelled regardless of the handler's result.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	handler, ok := e.registry.Get(j.Type)
	if !ok {
		return fmt.Errorf("%w: %q", copilot.ErrUnknownJobType, j.Type)
	}

	attemptNo := j.RetryCount + 1
	info := e.loadStatus(ctx, j)

	started := time.Now().UTC()
	info.Status = job.StatusProcessing
	info.StartedAt = &started
	info.RetryCount = j.RetryCount
	info.UpdatedAt = started
	if err := e.store.SetStatus(ctx, info); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}
	e.hooks.EmitJobStarted(ctx, j, attemptNo)

	res := e.mw(ctx, j, func(ctx context.Context) job.Result {
		return handler.Handle(ctx, j)
	})
	finished := time.Now().UTC()

	att := &job.Attempt{
		ID:         id.NewAttemptID(),
		JobID:      j.ID,
		Number:     attemptNo,
		StartedAt:  started,
		FinishedAt: finished,
		Success:    res.Success,
		Error:      res.ErrorMessage,
	}

	var err error
	switch {
	case e.canceller.Cancelled(j.ID):
		e.settleCancelled(ctx, j, info, finished)
		e.canceller.Clear(j.ID)
	case res.Success:
		e.settleCompleted(ctx, j, info, res, started, finished)
	case res.ShouldRetry && e.policy.Enabled && j.RetryCount < j.MaxRetries:
		err = e.settleRetry(ctx, j, info, res, att, finished)
	default:
		e.settleFailed(ctx, j, info, res, finished)
	}

	if appendErr := e.store.AppendAttempt(ctx, att); appendErr != nil {
		e.logger.Error("failed to record attempt",
			slog.String("job_id", j.ID.String()),
			slog.Int("attempt", attemptNo),
			slog.String("error", appendErr.Error()),
		)
	}

	return err
}

// CancelQueued settles a job whose cancellation was requested while it
// was still queued. The handler is never invoked.
func (e *Executor) CancelQueued(ctx context.Context, j *job.Job) {
	info := e.loadStatus(ctx, j)
	e.settleCancelled(ctx, j, info, time.Now().UTC())
}

// DeadLetterQueued settles a job that cannot be returned to the queue.
// The job goes to the dead letter queue and its dedup reservation is
// released, so it never lingers in a non-terminal status.
func (e *Executor) DeadLetterQueued(ctx context.Context, j *job.Job, errMsg string) {
	info := e.loadStatus(ctx, j)
	e.settleDeadLetter(ctx, j, errMsg, time.Now().UTC(), info)
}

// loadStatus fetches the job's status record, falling back to a fresh
// one when the store has no row (records are caller-deletable).
func (e *Executor) loadStatus(ctx context.Context, j *job.Job) *job.StatusInfo {
	info, err := e.store.GetStatus(ctx, j.ID)
	if err != nil {
		return job.NewStatusInfo(j)
	}
	return info
}

func (e *Executor) settleCompleted(ctx context.Context, j *job.Job, info *job.StatusInfo, res job.Result, started, finished time.Time) {
	info.Status = job.StatusCompleted
	info.CompletedAt = &finished
	info.ResultData = res.Data
	info.ErrorMessage = ""
	info.UpdatedAt = finished
	e.writeStatus(ctx, j, info)

	e.dedup.Release(j.DedupKey, j.ID)
	e.hooks.EmitJobCompleted(ctx, j, finished.Sub(started))
}

func (e *Executor) settleRetry(ctx context.Context, j *job.Job, info *job.StatusInfo, res job.Result, att *job.Attempt, finished time.Time) error {
	j.RetryCount++
	delay := e.calc.Delay(j.RetryCount-1, e.policy)
	nextRunAt := finished.Add(delay)
	j.ScheduledFor = nextRunAt

	att.Delay = delay
	att.Strategy = string(e.policy.Strategy)

	info.Status = job.StatusRetried
	info.RetryCount = j.RetryCount
	info.LastRetryAt = &finished
	info.ErrorMessage = res.ErrorMessage
	info.UpdatedAt = finished
	e.writeStatus(ctx, j, info)

	if err := e.requeue.Enqueue(j); err != nil {
		// The job cannot re-enter the queue; dead-letter it so the
		// failure stays visible instead of vanishing.
		e.logger.Error("re-enqueue of retried job failed, dead-lettering",
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", j.Type),
			slog.String("error", err.Error()),
		)
		e.settleDeadLetter(ctx, j, res.ErrorMessage, finished, info)
		return err
	}

	e.hooks.EmitJobRetrying(ctx, j, j.RetryCount, nextRunAt)

	e.logger.Info("job scheduled for retry",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", j.Type),
		slog.Int("attempt", j.RetryCount),
		slog.Int("max_retries", j.MaxRetries),
		slog.Duration("delay", delay),
	)
	return nil
}

func (e *Executor) settleFailed(ctx context.Context, j *job.Job, info *job.StatusInfo, res job.Result, finished time.Time) {
	if j.RetryCount >= j.MaxRetries && res.ShouldRetry && e.policy.Enabled {
		e.settleDeadLetter(ctx, j, res.ErrorMessage, finished, info)
		return
	}

	info.Status = job.StatusFailed
	info.CompletedAt = &finished
	info.ErrorMessage = res.ErrorMessage
	info.UpdatedAt = finished
	e.writeStatus(ctx, j, info)

	e.dedup.Release(j.DedupKey, j.ID)
	e.hooks.EmitJobFailed(ctx, j, res.ErrorMessage)
}

func (e *Executor) settleDeadLetter(ctx context.Context, j *job.Job, errMsg string, finished time.Time, info *job.StatusInfo) {
	info.Status = job.StatusDeadLetter
	info.CompletedAt = &finished
	info.ErrorMessage = errMsg
	info.RetryCount = j.RetryCount
	info.UpdatedAt = finished
	e.writeStatus(ctx, j, info)

	if e.dlqSvc != nil {
		if dlqErr := e.dlqSvc.Push(ctx, j, errMsg); dlqErr != nil {
			e.logger.Error("failed to push job to DLQ",
				slog.String("job_id", j.ID.String()),
				slog.String("error", dlqErr.Error()),
			)
		}
	}

	e.dedup.Release(j.DedupKey, j.ID)
	e.hooks.EmitJobDeadLettered(ctx, j, errMsg)

	e.logger.Warn("job dead-lettered after exhausting retries",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", j.Type),
		slog.Int("retry_count", j.RetryCount),
		slog.String("error", errMsg),
	)
}

func (e *Executor) settleCancelled(ctx context.Context, j *job.Job, info *job.StatusInfo, finished time.Time) {
	info.Status = job.StatusCancelled
	info.CompletedAt = &finished
	info.UpdatedAt = finished
	e.writeStatus(ctx, j, info)

	e.dedup.Release(j.DedupKey, j.ID)
	e.hooks.EmitJobCancelled(ctx, j)
}

func (e *Executor) writeStatus(ctx context.Context, j *job.Job, info *job.StatusInfo) {
	if err := e.store.SetStatus(ctx, info); err != nil {
		e.logger.Error("failed to update job status",
			slog.String("job_id", j.ID.String()),
			slog.String("status", string(info.Status)),
			slog.String("error", err.Error()),
		)
	}
}
