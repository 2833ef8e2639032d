package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// Queue is a bounded in-memory job queue with priority ordering and
// delayed scheduling. It is safe for concurrent producers and consumers,
// and never hands the same job to two consumers.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	ready   readyHeap
	delayed delayedHeap

	capacity int
	closed   bool
	seq      uint64

	// timer wakes waiting consumers when the earliest delayed job
	// becomes eligible.
	timer *time.Timer

	now func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithCapacity bounds the queue. Zero means unlimited.
func WithCapacity(n int) Option {
	return func(q *Queue) { q.capacity = n }
}

// WithPrioritization toggles priority ordering. When disabled the queue
// is strict FIFO among eligible jobs.
func WithPrioritization(enabled bool) Option {
	return func(q *Queue) { q.ready.prioritized = enabled }
}

// withClock injects a clock for tests.
func withClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New creates a queue. By default it is unbounded and prioritized.
func New(opts ...Option) *Queue {
	q := &Queue{
		ready: readyHeap{prioritized: true},
		now:   time.Now,
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue adds a job. It fails fast with copilot.ErrQueueFull when the
// queue is at capacity and copilot.ErrQueueClosed after Close. Jobs with
// a future ScheduledFor are held until eligible.
func (q *Queue) Enqueue(j *job.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return copilot.ErrQueueClosed
	}
	if q.capacity > 0 && q.ready.Len()+q.delayed.Len() >= q.capacity {
		return copilot.ErrQueueFull
	}

	q.seq++
	it := &item{job: j, seq: q.seq}

	if j.Ready(q.now()) {
		heap.Push(&q.ready, it)
		q.cond.Signal()
	} else {
		heap.Push(&q.delayed, it)
		q.armTimerLocked()
	}

	return nil
}

// Dequeue blocks until a ready job exists, ctx is cancelled, or the queue
// closes. Each job is returned to exactly one caller.
func (q *Queue) Dequeue(ctx context.Context) (*job.Job, error) {
	// Wake this waiter if the context is cancelled while blocked.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q.promoteLocked()

		if q.ready.Len() > 0 {
			it := heap.Pop(&q.ready).(*item)

			return it.job, nil
		}

		if q.closed {
			return nil, copilot.ErrQueueClosed
		}

		q.armTimerLocked()
		q.cond.Wait()
	}
}

// Count returns the number of jobs held, ready and delayed combined.
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.ready.Len() + q.delayed.Len()
}

// Close stops the queue. Pending Dequeue calls return
// copilot.ErrQueueClosed; jobs still held are dropped (an in-memory queue
// does not survive shutdown).
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
	}
	q.cond.Broadcast()
}

// promoteLocked moves delayed jobs whose time has come onto the ready heap.
func (q *Queue) promoteLocked() {
	now := q.now()
	for q.delayed.Len() > 0 && q.delayed.items[0].job.Ready(now) {
		it := heap.Pop(&q.delayed).(*item)
		heap.Push(&q.ready, it)
	}
}

// armTimerLocked schedules a wakeup for the earliest delayed job.
func (q *Queue) armTimerLocked() {
	if q.delayed.Len() == 0 {
		return
	}

	d := q.delayed.items[0].job.ScheduledFor.Sub(q.now())
	if d < 0 {
		d = 0
	}

	if q.timer == nil {
		q.timer = time.AfterFunc(d, func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			q.cond.Broadcast()
		})

		return
	}

	q.timer.Stop()
	q.timer.Reset(d)
}

// ──────────────────────────────────────────────────
// Heaps
// ──────────────────────────────────────────────────

// item pairs a job with its arrival sequence number.
type item struct {
	job *job.Job
	seq uint64
}

// readyHeap orders eligible jobs for dequeue. With prioritization on:
// priority descending, then CreatedAt ascending, then arrival order.
// With it off: arrival order only.
type readyHeap struct {
	items       []*item
	prioritized bool
}

func (h *readyHeap) Len() int { return len(h.items) }

func (h *readyHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]

	if h.prioritized {
		if a.job.Priority != b.job.Priority {
			return a.job.Priority > b.job.Priority
		}
		if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
			return a.job.CreatedAt.Before(b.job.CreatedAt)
		}
	}

	return a.seq < b.seq
}

func (h *readyHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *readyHeap) Push(x any) { h.items = append(h.items, x.(*item)) }

func (h *readyHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]

	return it
}

// delayedHeap is a min-heap keyed by ScheduledFor.
type delayedHeap struct {
	items []*item
}

func (h *delayedHeap) Len() int { return len(h.items) }

func (h *delayedHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if !a.job.ScheduledFor.Equal(b.job.ScheduledFor) {
		return a.job.ScheduledFor.Before(b.job.ScheduledFor)
	}

	return a.seq < b.seq
}

func (h *delayedHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *delayedHeap) Push(x any) { h.items = append(h.items, x.(*item)) }

func (h *delayedHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]

	return it
}
