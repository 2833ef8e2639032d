package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/queue"
)

// rateLimitedRequeueDelay is how far a job is pushed back when its type
// has no free execution slot.
const rateLimitedRequeueDelay = 250 * time.Millisecond

// Processor runs a fixed set of worker goroutines that consume the
// queue and feed jobs to the Executor. Dequeue blocks, so idle workers
// cost nothing; there is no polling.
type Processor struct {
	queue     *queue.Queue
	limiter   *queue.Limiter
	executor  *Executor
	canceller *Canceller

	concurrency int
	workerID    id.ID
	logger      *slog.Logger

	mu      sync.Mutex
	running bool
	stop    context.CancelFunc
	group   *errgroup.Group
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithConcurrency sets the number of concurrent worker goroutines.
func WithConcurrency(n int) ProcessorOption {
	return func(p *Processor) { p.concurrency = n }
}

// WithLimiter sets the per-type concurrency and rate limiter.
func WithLimiter(l *queue.Limiter) ProcessorOption {
	return func(p *Processor) { p.limiter = l }
}

// NewProcessor creates a Processor.
func NewProcessor(
	q *queue.Queue,
	executor *Executor,
	canceller *Canceller,
	logger *slog.Logger,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		queue:       q,
		executor:    executor,
		canceller:   canceller,
		concurrency: 2,
		workerID:    id.NewWorkerID(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerID returns the processor's unique worker identifier.
func (p *Processor) WorkerID() id.ID { return p.workerID }

// Start launches the worker goroutines. It returns immediately.
func (p *Processor) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return copilot.ErrAlreadyStarted
	}
	p.running = true

	dequeueCtx, cancel := context.WithCancel(context.Background())
	p.stop = cancel
	p.group = new(errgroup.Group)

	p.logger.Info("worker processor starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
	)

	for range p.concurrency {
		p.group.Go(func() error {
			return p.dequeueLoop(dequeueCtx)
		})
	}

	return nil
}

// Stop halts dequeuing and waits for in-flight jobs to finish. If the
// context expires first, the contexts of still-running jobs are
// cancelled and the drain continues until they return.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return copilot.ErrNotStarted
	}
	p.running = false
	stop := p.stop
	group := p.group
	p.mu.Unlock()

	p.logger.Info("worker processor stopping",
		slog.String("worker_id", p.workerID.String()))

	stop()

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker processor stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("drain deadline exceeded, cancelling active jobs")
		p.canceller.CancelAll()
		<-done
	}

	return nil
}

// dequeueLoop is run by each worker goroutine.
func (p *Processor) dequeueLoop(ctx context.Context) error {
	for {
		j, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, copilot.ErrQueueClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			p.logger.Error("dequeue error", slog.String("error", err.Error()))
			return err
		}

		p.process(j)
	}
}

// process settles a single dequeued job.
func (p *Processor) process(j *job.Job) {
	// Cancellation requested while the job sat in the queue: the
	// handler must never run.
	if p.canceller.Cancelled(j.ID) {
		p.executor.CancelQueued(context.Background(), j)
		p.canceller.Clear(j.ID)
		return
	}

	// Per-type concurrency and rate limits. A job without a free slot
	// goes back to the queue with a short delay. If the queue refuses
	// it, the job is dead-lettered rather than dropped so it still
	// reaches a terminal status and its dedup key is released.
	if p.limiter != nil && !p.limiter.Acquire(j.Type) {
		j.ScheduledFor = time.Now().UTC().Add(rateLimitedRequeueDelay)
		if err := p.queue.Enqueue(j); err != nil {
			p.logger.Error("failed to re-enqueue rate-limited job",
				slog.String("job_id", j.ID.String()),
				slog.String("error", err.Error()),
			)
			p.executor.DeadLetterQueued(context.Background(), j,
				fmt.Sprintf("requeue after rate limit rejection failed: %v", err))
		}
		return
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	p.canceller.Track(j.ID, cancel)

	if err := p.executor.Execute(jobCtx, j); err != nil {
		p.logger.Debug("job execution error",
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", j.Type),
			slog.String("error", err.Error()),
		)
	}

	p.canceller.Untrack(j.ID)
	cancel()

	if p.limiter != nil {
		p.limiter.Release(j.Type)
	}
}
