package job

import (
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
)

// InheritMaxRetries marks a job that takes its retry budget from the
// engine's configured retry policy. It is resolved to a concrete value
// during dispatch.
const InheritMaxRetries = -1

// Options configures per-job behavior such as retries, priority, and
// scheduling.
type Options struct {
	// MaxRetries is the maximum number of retry attempts before the job
	// is dead-lettered. Negative means the engine's configured retry
	// budget applies.
	MaxRetries int

	// Priority determines dequeue ordering. Higher values are processed
	// first when prioritization is enabled.
	Priority int

	// ScheduledFor holds the job back until the given time. Zero means
	// immediately eligible.
	ScheduledFor time.Time

	// Timeout is the maximum duration a job may run before its context
	// is cancelled. Zero means no per-job deadline.
	Timeout time.Duration

	// DedupKey suppresses duplicate dispatch while another job with the
	// same key is in flight. Empty disables deduplication.
	DedupKey string

	// Source records where the job originated (e.g. "webhook", "replay").
	Source string

	// CorrelationID links the job to an external workflow.
	CorrelationID string

	// ParentID links the job to the job that spawned it.
	ParentID id.ID

	// Metadata carries caller correlation data, opaque to the engine.
	Metadata map[string]string
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxRetries: InheritMaxRetries,
		Priority:   0,
	}
}

// Option is a functional option for configuring a job.
type Option func(*Options)

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		o.MaxRetries = n
	}
}

// WithPriority sets the job priority. Higher values are processed first.
func WithPriority(p int) Option {
	return func(o *Options) {
		o.Priority = p
	}
}

// WithScheduledFor holds the job back until the given time.
func WithScheduledFor(t time.Time) Option {
	return func(o *Options) {
		o.ScheduledFor = t
	}
}

// WithTimeout sets the maximum execution duration for the job.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithDedupKey enables duplicate suppression under the given key.
func WithDedupKey(key string) Option {
	return func(o *Options) {
		o.DedupKey = key
	}
}

// WithSource records where the job originated.
func WithSource(source string) Option {
	return func(o *Options) {
		o.Source = source
	}
}

// WithCorrelationID links the job to an external workflow.
func WithCorrelationID(cid string) Option {
	return func(o *Options) {
		o.CorrelationID = cid
	}
}

// WithParentID links the job to the job that spawned it.
func WithParentID(pid id.ID) Option {
	return func(o *Options) {
		o.ParentID = pid
	}
}

// WithMetadata attaches caller correlation data to the job.
func WithMetadata(md map[string]string) Option {
	return func(o *Options) {
		o.Metadata = md
	}
}
