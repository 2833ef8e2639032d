// Package copilot provides the background job scheduling engine that powers
// the autonomous issue-to-pull-request agent. It offers a bounded priority
// queue, a fixed worker pool, retry with configurable backoff, duplicate
// suppression, and a dead-letter queue for jobs that exhaust their retries.
//
// Copilot is designed as a library, not a service. Import it, register job
// handlers as ordinary Go functions, and dispatch work:
//
//	cfg := copilot.DefaultConfig()
//	cfg.MaxConcurrency = 4
//	cfg.MaxQueueSize = 200
//
//	e, err := engine.New(engine.WithConfig(cfg))
//	e.Register(handler)
//	e.Start(ctx)
//	e.Dispatch(ctx, j)
//
// # Architecture
//
// Each subsystem lives in its own package: queue (bounded priority queue),
// backoff (retry delay calculation), dedup (duplicate suppression), worker
// (execution pool), dispatch (admission control), dlq (dead-letter queue),
// and store (status persistence backends). The engine package wires them
// together behind a single facade.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package copilot
