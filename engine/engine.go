// Package engine wires all subsystems together. It creates the job
// registry, queue, dispatcher, middleware chain, worker processor, and
// DLQ service, and provides the application-level API for registering
// handlers and dispatching jobs.
//
// This package exists to break the import cycle: the root copilot
// package defines Config and the sentinel errors (imported by job,
// queue, etc.) and so cannot import those packages back. The engine
// package sits above all subsystem packages and below the application
// layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/audit"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/backoff"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/dedup"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/dispatch"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/dlq"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
	mw "github.com/ronnygunawan/RG.OpenCopilot-sub005/middleware"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/queue"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/store"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/store/memory"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/worker"
)

const otelScope = "github.com/ronnygunawan/RG.OpenCopilot-sub005"

// Engine is the top-level job scheduling engine. Build one with New,
// register handlers, then Start it.
type Engine struct {
	cfg    copilot.Config
	logger *slog.Logger
	store  store.Store

	registry   *job.Registry
	queue      *queue.Queue
	limiter    *queue.Limiter
	dedup      *dedup.Service
	hooks      *audit.Registry
	canceller  *worker.Canceller
	dispatcher *dispatch.Dispatcher
	processor  *worker.Processor
	dlqService *dlq.Service

	mws        []mw.Middleware
	optHooks   []audit.Hook
	typeLimits []queue.TypeConfig

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	mu      sync.Mutex
	started bool
	stopped bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine configuration.
// If not set, copilot.DefaultConfig() is used.
func WithConfig(cfg copilot.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithStore sets the persistence backend for status records and the
// dead letter queue. If not set, an in-memory store is used.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithLogger sets the engine's logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMiddleware appends middleware to the execution chain, after the
// built-in stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, m) }
}

// WithHook registers an audit hook with the engine.
func WithHook(h audit.Hook) Option {
	return func(e *Engine) { e.optHooks = append(e.optHooks, h) }
}

// WithTypeLimits configures per-job-type concurrency caps and rate
// limits. Types not listed have no limits.
func WithTypeLimits(configs ...queue.TypeConfig) Option {
	return func(e *Engine) { e.typeLimits = append(e.typeLimits, configs...) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the tracing
// middleware. If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the metrics
// middleware. If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// New creates an Engine. The returned engine is idle until Start.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:      copilot.DefaultConfig(),
		logger:   slog.Default(),
		registry: job.NewRegistry(),
		dedup:    dedup.NewService(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if e.store == nil {
		e.store = memory.New()
	}

	// The hook registry logs through the engine's logger, so it is
	// built only after the options (including WithLogger) have run.
	e.hooks = audit.NewRegistry(e.logger)
	for _, h := range e.optHooks {
		e.hooks.Register(h)
	}

	e.queue = queue.New(
		queue.WithCapacity(e.cfg.MaxQueueSize),
		queue.WithPrioritization(e.cfg.EnablePrioritization),
	)
	e.canceller = worker.NewCanceller()
	e.dispatcher = dispatch.New(e.registry, e.queue, e.dedup, e.store, e.hooks, e.cfg.Retry, e.logger)
	e.dlqService = dlq.NewService(e.store, e.dispatcher)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if e.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(e.tracerProvider.Tracer(otelScope))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if e.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(e.meterProvider.Meter(otelScope))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging →
	// scope → timeout, then user middleware innermost.
	allMws := make([]mw.Middleware, 0, 6+len(e.mws))
	allMws = append(allMws,
		mw.Recover(e.logger),
		tracingMw,
		metricsMw,
		mw.Logging(e.logger),
		mw.Scope(),
		mw.Timeout(e.logger),
	)
	allMws = append(allMws, e.mws...)

	executor := worker.NewExecutor(
		e.registry,
		e.store,
		e.dlqService,
		e.dedup,
		e.hooks,
		backoff.NewCalculator(),
		e.cfg.Retry,
		e.queue,
		e.canceller,
		e.logger,
		allMws...,
	)

	procOpts := []worker.ProcessorOption{
		worker.WithConcurrency(e.cfg.MaxConcurrency),
	}
	if len(e.typeLimits) > 0 {
		e.limiter = queue.NewLimiter(e.typeLimits...)
		procOpts = append(procOpts, worker.WithLimiter(e.limiter))
	}
	e.processor = worker.NewProcessor(e.queue, executor, e.canceller, e.logger, procOpts...)

	return e, nil
}

// Register registers a job handler. Registration must happen before
// Start; afterwards the registry is frozen and Register returns
// copilot.ErrRegistryFrozen.
func (e *Engine) Register(h job.Handler) error {
	return e.registry.Register(h)
}

// Register registers a typed job definition with the engine.
func Register[T any](e *Engine, def *job.Definition[T]) error {
	return e.registry.Register(def)
}

// Enqueue builds a job from a typed definition and dispatches it.
// Per-call options override the definition's defaults.
func Enqueue[T any](ctx context.Context, e *Engine, def *job.Definition[T], payload T, opts ...job.Option) (*job.Job, error) {
	j, err := def.NewJob(payload, opts...)
	if err != nil {
		return nil, err
	}
	if dispatchErr := e.Dispatch(ctx, j); dispatchErr != nil {
		return nil, dispatchErr
	}

	return j, nil
}

// Dispatch admits a job into the engine: validation, deduplication,
// status record, enqueue. It never blocks on execution. Jobs may be
// dispatched before Start; they wait in the queue.
func (e *Engine) Dispatch(ctx context.Context, j *job.Job) error {
	return e.dispatcher.Dispatch(ctx, j)
}

// Start freezes the registry and launches the worker processor.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return copilot.ErrAlreadyStarted
	}

	e.registry.Freeze()
	if err := e.processor.Start(ctx); err != nil {
		return err
	}
	e.started = true

	e.logger.Info("engine started",
		slog.Int("concurrency", e.cfg.MaxConcurrency),
		slog.Int("queue_capacity", e.cfg.MaxQueueSize),
		slog.Any("job_types", e.registry.Types()),
	)

	return nil
}

// Stop gracefully shuts the engine down: the queue stops accepting
// jobs, in-flight jobs get a grace period, and then remaining ones are
// cancelled. When ctx carries no deadline, Config.ShutdownTimeout
// applies.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return copilot.ErrNotStarted
	}
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.mu.Unlock()

	e.queue.Close()

	if _, ok := ctx.Deadline(); !ok && e.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
		defer cancel()
	}

	err := e.processor.Stop(ctx)
	e.hooks.EmitShutdown(ctx)
	e.logger.Info("engine stopped")

	return err
}

// Cancel requests cancellation of a job. Queued jobs are marked
// cancelled before their handler ever runs; a job currently processing
// has its context cancelled and settles as cancelled when the handler
// returns. Jobs already in a terminal state cannot be cancelled.
func (e *Engine) Cancel(ctx context.Context, jobID id.ID) error {
	info, err := e.store.GetStatus(ctx, jobID)
	if err != nil {
		return err
	}
	if info.Status.Terminal() {
		return fmt.Errorf("cancel job %s: %w", jobID, copilot.ErrJobTerminal)
	}

	e.canceller.RequestCancel(jobID)
	e.logger.Info("job cancellation requested",
		slog.String("job_id", jobID.String()),
		slog.String("status", string(info.Status)),
	)

	return nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// Status returns the status record for a job.
func (e *Engine) Status(ctx context.Context, jobID id.ID) (*job.StatusInfo, error) {
	return e.store.GetStatus(ctx, jobID)
}

// Attempts returns a job's attempt history, oldest first.
func (e *Engine) Attempts(ctx context.Context, jobID id.ID) ([]*job.Attempt, error) {
	return e.store.ListAttempts(ctx, jobID)
}

// List returns status records matching the filter, newest first.
func (e *Engine) List(ctx context.Context, f job.Filter) ([]*job.StatusInfo, error) {
	return e.store.List(ctx, f)
}

// Metrics returns aggregate counts and latency statistics.
func (e *Engine) Metrics(ctx context.Context) (*job.Metrics, error) {
	return e.store.Metrics(ctx)
}

// ──────────────────────────────────────────────────
// Dead letter queue
// ──────────────────────────────────────────────────

// ListDLQ returns dead letter entries, oldest first.
func (e *Engine) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	return e.dlqService.List(ctx, opts)
}

// ReplayDLQ re-dispatches a dead letter entry as a fresh job.
func (e *Engine) ReplayDLQ(ctx context.Context, entryID id.ID) (*job.Job, error) {
	return e.dlqService.Replay(ctx, entryID)
}

// PurgeDLQ deletes dead letter entries that failed before the cutoff
// and returns how many were removed.
func (e *Engine) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	return e.dlqService.Purge(ctx, before)
}

// CountDLQ returns the number of dead letter entries.
func (e *Engine) CountDLQ(ctx context.Context) (int64, error) {
	return e.dlqService.Count(ctx)
}

// ──────────────────────────────────────────────────
// Accessors
// ──────────────────────────────────────────────────

// Registry returns the job registry.
func (e *Engine) Registry() *job.Registry { return e.registry }

// Hooks returns the audit hook registry.
func (e *Engine) Hooks() *audit.Registry { return e.hooks }

// DLQService returns the DLQ service for replay and inspection.
func (e *Engine) DLQService() *dlq.Service { return e.dlqService }

// WorkerID returns the processor's worker identifier.
func (e *Engine) WorkerID() id.ID { return e.processor.WorkerID() }

// QueueDepth returns the number of jobs currently queued, both ready
// and delayed.
func (e *Engine) QueueDepth() int { return e.queue.Count() }
