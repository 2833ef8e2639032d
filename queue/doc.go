// Package queue implements the bounded in-memory job queue that sits
// between the dispatcher and the worker pool.
//
// # Queue
//
// [Queue] holds jobs in two heaps: a ready heap ordered for dequeue and a
// delayed min-heap keyed by ScheduledFor. A job whose ScheduledFor lies in
// the future is invisible to consumers until that time passes; promotion is
// timer-driven, never polled.
//
// Enqueue fails fast with [copilot.ErrQueueFull] once capacity is reached —
// callers must treat this as backpressure. Dequeue blocks until a ready job
// exists, the context is cancelled, or the queue closes. A dequeued job is
// handed to exactly one consumer.
//
// Ordering: with prioritization enabled, higher Priority dequeues first and
// ties fall back to CreatedAt (FIFO); with it disabled, arrival order wins.
// Retried jobs re-enter through Enqueue and are ordered by their new
// ScheduledFor and priority like any fresh job.
//
// # Limiter
//
// [Limiter] enforces per-job-type rate limits and concurrency caps at
// dequeue time, using a token-bucket limiter (golang.org/x/time/rate) and
// an active-count gate:
//
//	l := queue.NewLimiter(
//	    queue.TypeConfig{Type: "plan_execution", MaxConcurrency: 1},
//	    queue.TypeConfig{Type: "plan_generation", RateLimit: 2, RateBurst: 4},
//	)
//	if l.Acquire(j.Type) {
//	    defer l.Release(j.Type)
//	    // process the job
//	}
//
// Types without a [TypeConfig] have no limits beyond the pool-wide
// concurrency.
package queue
