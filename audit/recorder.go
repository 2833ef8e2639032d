package audit

import (
	"context"
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// Audit event actions. Each constant corresponds to one lifecycle hook
// and becomes the Action field of the emitted event.
const (
	ActionJobQueued       = "job.queued"
	ActionJobStarted      = "job.started"
	ActionJobCompleted    = "job.completed"
	ActionJobFailed       = "job.failed"
	ActionJobRetrying     = "job.retrying"
	ActionJobDeadLettered = "job.dead_lettered"
	ActionJobCancelled    = "job.cancelled"
)

// Event severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Event is the structured record handed to a Recorder for every job
// state transition.
type Event struct {
	Action   string         `json:"action"`
	JobID    string         `json:"job_id"`
	JobType  string         `json:"job_type"`
	Severity string         `json:"severity"`
	Outcome  string         `json:"outcome"`
	Reason   string         `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Recorder is the interface audit trail backends implement. It is defined
// locally so this package does not depend on any particular backend —
// callers inject their own adapter at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *Event) error
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Compile-time interface checks.
var (
	_ Hook            = (*Bridge)(nil)
	_ JobQueued       = (*Bridge)(nil)
	_ JobStarted      = (*Bridge)(nil)
	_ JobCompleted    = (*Bridge)(nil)
	_ JobFailed       = (*Bridge)(nil)
	_ JobRetrying     = (*Bridge)(nil)
	_ JobDeadLettered = (*Bridge)(nil)
	_ JobCancelled    = (*Bridge)(nil)
)

// Bridge is a hook that converts lifecycle events into [Event] records
// and forwards them to a Recorder. Severity is assigned per action: info
// for normal operations, warning for retries, critical for terminal
// failures.
type Bridge struct {
	recorder Recorder
	actions  map[string]bool
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithActions restricts the bridge to the listed actions. By default all
// actions are recorded.
func WithActions(actions ...string) BridgeOption {
	return func(b *Bridge) {
		b.actions = make(map[string]bool, len(actions))
		for _, a := range actions {
			b.actions[a] = true
		}
	}
}

// NewBridge creates a Recorder-backed audit hook.
func NewBridge(recorder Recorder, opts ...BridgeOption) *Bridge {
	b := &Bridge{recorder: recorder}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Name implements Hook.
func (b *Bridge) Name() string { return "audit.bridge" }

func (b *Bridge) record(ctx context.Context, evt *Event, j *job.Job) error {
	if b.actions != nil && !b.actions[evt.Action] {
		return nil
	}

	evt.JobID = j.ID.String()
	evt.JobType = j.Type
	if evt.Metadata == nil {
		evt.Metadata = map[string]any{}
	}
	if j.CorrelationID != "" {
		evt.Metadata["correlation_id"] = j.CorrelationID
	}
	if j.Source != "" {
		evt.Metadata["source"] = j.Source
	}

	return b.recorder.Record(ctx, evt)
}

// OnJobQueued implements JobQueued.
func (b *Bridge) OnJobQueued(ctx context.Context, j *job.Job) error {
	return b.record(ctx, &Event{
		Action:   ActionJobQueued,
		Severity: SeverityInfo,
		Outcome:  "success",
		Metadata: map[string]any{"new_status": string(job.StatusQueued)},
	}, j)
}

// OnJobStarted implements JobStarted.
func (b *Bridge) OnJobStarted(ctx context.Context, j *job.Job, attempt int) error {
	return b.record(ctx, &Event{
		Action:   ActionJobStarted,
		Severity: SeverityInfo,
		Outcome:  "success",
		Metadata: map[string]any{
			"old_status": string(job.StatusQueued),
			"new_status": string(job.StatusProcessing),
			"attempt":    attempt,
		},
	}, j)
}

// OnJobCompleted implements JobCompleted.
func (b *Bridge) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return b.record(ctx, &Event{
		Action:   ActionJobCompleted,
		Severity: SeverityInfo,
		Outcome:  "success",
		Metadata: map[string]any{
			"old_status": string(job.StatusProcessing),
			"new_status": string(job.StatusCompleted),
			"elapsed_ms": elapsed.Milliseconds(),
		},
	}, j)
}

// OnJobFailed implements JobFailed.
func (b *Bridge) OnJobFailed(ctx context.Context, j *job.Job, errMsg string) error {
	return b.record(ctx, &Event{
		Action:   ActionJobFailed,
		Severity: SeverityCritical,
		Outcome:  "failure",
		Reason:   errMsg,
		Metadata: map[string]any{
			"old_status": string(job.StatusProcessing),
			"new_status": string(job.StatusFailed),
		},
	}, j)
}

// OnJobRetrying implements JobRetrying.
func (b *Bridge) OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error {
	return b.record(ctx, &Event{
		Action:   ActionJobRetrying,
		Severity: SeverityWarning,
		Outcome:  "retry",
		Metadata: map[string]any{
			"old_status":  string(job.StatusProcessing),
			"new_status":  string(job.StatusRetried),
			"attempt":     attempt,
			"max_retries": j.MaxRetries,
			"next_run_at": nextRunAt,
		},
	}, j)
}

// OnJobDeadLettered implements JobDeadLettered.
func (b *Bridge) OnJobDeadLettered(ctx context.Context, j *job.Job, errMsg string) error {
	return b.record(ctx, &Event{
		Action:   ActionJobDeadLettered,
		Severity: SeverityCritical,
		Outcome:  "failure",
		Reason:   errMsg,
		Metadata: map[string]any{
			"old_status":  string(job.StatusProcessing),
			"new_status":  string(job.StatusDeadLetter),
			"retry_count": j.RetryCount,
		},
	}, j)
}

// OnJobCancelled implements JobCancelled.
func (b *Bridge) OnJobCancelled(ctx context.Context, j *job.Job) error {
	return b.record(ctx, &Event{
		Action:   ActionJobCancelled,
		Severity: SeverityInfo,
		Outcome:  "cancelled",
		Metadata: map[string]any{"new_status": string(job.StatusCancelled)},
	}, j)
}
