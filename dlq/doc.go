// Package dlq provides the dead letter queue for jobs that have exhausted
// their retry budget. It supports inspection, replay, and purging.
//
// When a job fails and MaxRetries has been reached, the executor calls
// [Service.Push] to move it into the DLQ. The original payload, final
// error message, and retry counts are preserved for debugging.
//
// # Entry
//
// An [Entry] captures:
//   - JobID / JobType: original job identity
//   - Payload: the raw payload at time of failure
//   - Error: the final attempt's error message
//   - RetryCount / MaxRetries: the exhausted retry budget
//   - FailedAt: when the terminal failure occurred
//   - ReplayedAt: set when the entry is replayed (nil if not yet replayed)
//
// # Service
//
// [Service] wraps the DLQ store with high-level operations:
//
//	svc := dlq.NewService(store, dispatcher)
//
//	// Push is called automatically by the executor on retry exhaustion.
//	svc.Push(ctx, deadJob, lastErr)
//
//	// Inspection.
//	svc.List(ctx, dlq.ListOpts{Limit: 50})
//	svc.Count(ctx)
//
// # Replay
//
// Replaying an entry dispatches a fresh job with the same type and
// payload, a new ID, and a zeroed retry count, then sets ReplayedAt on
// the entry.
package dlq
