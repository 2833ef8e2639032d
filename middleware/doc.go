// Package middleware provides composable middleware for job execution.
//
// A [Middleware] is a function that wraps a job handler. Middleware are
// composed into a chain using [Chain] and applied before each job executes.
// They are applied right-to-left: the first middleware in the slice is the
// outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs job type, duration, and outcome at each execution
//   - [Recover] — catches panics and converts them to retryable failures
//   - [Timeout] — cancels the job context after the job's configured deadline
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-job duration and outcome counters
//   - [Scope] — restores job provenance (source, correlation) into context
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, j *job.Job, next middleware.Handler) job.Result {
//	        // pre-processing
//	        res := next(ctx)
//	        // post-processing
//	        return res
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting with a failure Result (e.g., circuit breaker).
package middleware
