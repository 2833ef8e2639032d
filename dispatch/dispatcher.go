// Package dispatch implements the job admission path: handler
// validation, deduplication, status record creation, and enqueue with
// full rollback when the queue rejects the job.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/audit"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/backoff"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/dedup"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/queue"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/scope"
)

// Dispatcher admits jobs into the engine. It never blocks on job
// execution: a successful Dispatch means the job is queued and has a
// status record, nothing more.
type Dispatcher struct {
	registry *job.Registry
	queue    *queue.Queue
	dedup    *dedup.Service
	store    job.StatusStore
	hooks    *audit.Registry
	retry    backoff.Policy
	logger   *slog.Logger
}

// New creates a Dispatcher. The retry policy supplies the retry budget
// for jobs dispatched without an explicit one.
func New(
	registry *job.Registry,
	q *queue.Queue,
	d *dedup.Service,
	store job.StatusStore,
	hooks *audit.Registry,
	retry backoff.Policy,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		queue:    q,
		dedup:    d,
		store:    store,
		hooks:    hooks,
		retry:    retry,
		logger:   logger,
	}
}

// Dispatch validates, deduplicates, records, and enqueues a job.
//
// Admission is all-or-nothing: when the queue rejects the job, the
// status record and the dedup reservation are rolled back so no orphaned
// state remains. Provenance missing from the job is inherited from the
// context, so jobs dispatched inside a handler carry their parent's
// lineage.
func (d *Dispatcher) Dispatch(ctx context.Context, j *job.Job) error {
	if _, ok := d.registry.Get(j.Type); !ok {
		return fmt.Errorf("%w: %q", copilot.ErrUnknownJobType, j.Type)
	}

	d.inheritProvenance(ctx, j)

	// Jobs dispatched without an explicit retry budget take the
	// engine's configured one.
	if j.MaxRetries < 0 {
		j.MaxRetries = d.retry.MaxRetries
	}

	if !d.dedup.TryReserve(j.DedupKey, j.ID) {
		holder, _ := d.dedup.Holder(j.DedupKey)
		return fmt.Errorf("%w: dedup key %q held by %s",
			copilot.ErrDuplicateJob, j.DedupKey, holder)
	}

	info := job.NewStatusInfo(j)
	if err := d.store.SetStatus(ctx, info); err != nil {
		d.dedup.Release(j.DedupKey, j.ID)
		return fmt.Errorf("record job status: %w", err)
	}

	if err := d.queue.Enqueue(j); err != nil {
		if delErr := d.store.DeleteStatus(ctx, j.ID); delErr != nil {
			d.logger.Error("rollback of rejected job failed",
				slog.String("job_id", j.ID.String()),
				slog.String("error", delErr.Error()),
			)
		}
		d.dedup.Release(j.DedupKey, j.ID)
		return err
	}

	d.hooks.EmitJobQueued(ctx, j)
	return nil
}

// inheritProvenance fills empty provenance fields from the context.
func (d *Dispatcher) inheritProvenance(ctx context.Context, j *job.Job) {
	p := scope.Capture(ctx)
	if j.Source == "" {
		j.Source = p.Source
	}
	if j.CorrelationID == "" {
		j.CorrelationID = p.CorrelationID
	}
	if j.ParentID.IsNil() {
		j.ParentID = p.ParentID
	}
}
