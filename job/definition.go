package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Result is the outcome of one handler invocation.
type Result struct {
	// Success reports whether the attempt succeeded.
	Success bool

	// ErrorMessage describes the failure. Empty on success.
	ErrorMessage string

	// ShouldRetry marks a failed attempt as retryable. Ignored on success.
	ShouldRetry bool

	// Data is opaque serialized handler output, stored on the status
	// record when the job completes.
	Data []byte
}

// Handler processes jobs of a single type. Implementations must be safe
// for concurrent use; the pool may run several jobs of the same type at
// once.
type Handler interface {
	// JobType returns the type tag this handler serves.
	JobType() string

	// Handle executes one attempt. The context carries the per-job
	// cancellation and timeout; handlers are expected to observe it
	// promptly.
	Handle(ctx context.Context, j *Job) Result
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc struct {
	Type string
	Fn   func(ctx context.Context, j *Job) Result
}

// JobType implements Handler.
func (h HandlerFunc) JobType() string { return h.Type }

// Handle implements Handler.
func (h HandlerFunc) Handle(ctx context.Context, j *Job) Result { return h.Fn(ctx, j) }

// permanentError marks a handler error as non-retryable.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so the engine fails the job without retrying.
// Handler errors are retryable by default.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError

	return errors.As(err, &p)
}

// Definition is a typed job definition with a handler function.
// T is the payload type (must be JSON-serializable). Definition
// implements Handler: the payload is unmarshaled into T before the typed
// handler runs, and the returned error is mapped to a Result (retryable
// unless wrapped with Permanent).
type Definition[T any] struct {
	// Type is the unique identifier for this job type.
	Type string

	// Handler is the function that processes the job payload.
	Handler func(ctx context.Context, payload T) error

	// Opts configures retries, priority, timeout, and scheduling for
	// jobs created from this definition.
	Opts Options
}

// NewDefinition creates a typed job definition.
func NewDefinition[T any](jobType string, handler func(ctx context.Context, payload T) error, opts ...Option) *Definition[T] {
	def := &Definition[T]{
		Type:    jobType,
		Handler: handler,
		Opts:    DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&def.Opts)
	}

	return def
}

// JobType implements Handler.
func (d *Definition[T]) JobType() string { return d.Type }

// Handle implements Handler.
func (d *Definition[T]) Handle(ctx context.Context, j *Job) Result {
	var payload T
	if len(j.Payload) > 0 {
		if err := json.Unmarshal(j.Payload, &payload); err != nil {
			return Result{
				ErrorMessage: fmt.Sprintf("unmarshal payload for job type %q: %v", d.Type, err),
				ShouldRetry:  false,
			}
		}
	}

	if err := d.Handler(ctx, payload); err != nil {
		return Result{
			ErrorMessage: err.Error(),
			ShouldRetry:  !IsPermanent(err),
		}
	}

	return Result{Success: true}
}

// NewJob builds a Job from this definition with the payload serialized to
// JSON. Per-call options override the definition's defaults.
func (d *Definition[T]) NewJob(payload T, opts ...Option) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for job type %q: %w", d.Type, err)
	}

	o := d.Opts
	for _, opt := range opts {
		opt(&o)
	}

	j := New(d.Type, data)
	j.Priority = o.Priority
	j.MaxRetries = o.MaxRetries
	j.ScheduledFor = o.ScheduledFor
	j.Timeout = o.Timeout
	j.DedupKey = o.DedupKey
	j.Source = o.Source
	j.CorrelationID = o.CorrelationID
	j.ParentID = o.ParentID
	j.Metadata = o.Metadata

	return j, nil
}
