// Package engine provides the application-level API of the job engine.
//
// # Building an Engine
//
//	eng, err := engine.New(
//	    engine.WithConfig(cfg),
//	    engine.WithStore(pgStore),
//	    engine.WithHook(audit.NewLogger(logger)),
//	    engine.WithTypeLimits(queue.TypeConfig{
//	        Type:           "plan_execution",
//	        MaxConcurrency: 1,
//	    }),
//	)
//
// # Registering Work
//
//	def := job.NewDefinition("plan_generation", func(ctx context.Context, p PlanInput) error {
//	    return generatePlan(ctx, p)
//	})
//	engine.Register(eng, def)
//
// # Dispatching Jobs
//
//	j, err := engine.Enqueue(ctx, eng, def, PlanInput{Issue: 42})
//
//	// Or with a raw payload:
//	err = eng.Dispatch(ctx, job.New("plan_generation", payload,
//	    job.WithPriority(5),
//	    job.WithDedupKey("issue-42"),
//	))
//
// # Lifecycle
//
// Register all handlers first, then Start. Registration after Start
// fails with copilot.ErrRegistryFrozen. Stop drains in-flight jobs,
// bounded by the context deadline or Config.ShutdownTimeout.
//
// # Options
//
//   - [WithConfig] — engine configuration (concurrency, queue size, retry policy)
//   - [WithStore] — persistence backend (memory, redis, postgres)
//   - [WithLogger] — structured logger
//   - [WithMiddleware] — append execution middleware
//   - [WithHook] — register an audit hook
//   - [WithTypeLimits] — per-job-type concurrency and rate limits
//   - [WithTracerProvider] — OpenTelemetry tracer provider
//   - [WithMeterProvider] — OpenTelemetry meter provider
package engine
