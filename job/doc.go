// Package job defines the job entity, status lifecycle, typed definitions,
// and the status store interface.
//
// # Job Entity
//
// A [Job] represents a unit of work. It embeds [copilot.Entity] for
// timestamps, carries an opaque payload, and its status record progresses
// through a state machine:
//
//	queued → processing → completed
//	queued → processing → retried → queued → ...
//	queued → processing → failed
//	queued → processing → dead_letter
//	queued → cancelled
//
// Completed, Failed, Cancelled, and DeadLetter are terminal. DeadLetter is
// reached only by exhausting the retry budget; a failure the handler marks
// non-retryable goes to Failed instead.
//
// Fields of note:
//   - Priority: higher values are dequeued first
//   - MaxRetries / RetryCount: controls the retry budget
//   - ScheduledFor: earliest time the job may be dequeued
//   - DedupKey: optional key for duplicate suppression at dispatch
//   - Metadata: caller correlation data, opaque to the engine
//
// # Defining a Job
//
// Use [Definition] with a typed handler. The payload is JSON-serialized at
// dispatch time and deserialized before the handler runs:
//
//	var GeneratePlan = job.NewDefinition("plan_generation",
//	    func(ctx context.Context, input PlanInput) error {
//	        return planner.Generate(ctx, input.IssueURL)
//	    },
//	)
//
// Returned errors are retryable by default; wrap with [Permanent] to fail
// without retry.
//
// # Registry
//
// [Registry] maps job types to [Handler] values. Register definitions at
// startup; the registry freezes when the engine starts and rejects both
// duplicate types and late registration.
package job
