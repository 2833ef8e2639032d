// Package audit defines the lifecycle hook system for the job engine.
// Hooks are notified of lifecycle events (job queued, started, completed,
// failed, retrying, dead-lettered, cancelled) and can react to them —
// logging, metrics, external audit trails.
//
// Each lifecycle event is a separate interface so hooks opt in only to the
// events they care about. Hook errors are logged and never propagated; a
// failing audit backend must not fail a job transition.
//
// The package ships two hooks: [Logger], which writes every transition to
// a slog.Logger, and [Bridge], which converts transitions to [Event]
// records and forwards them to an injected [Recorder] backend.
package audit
