// Package scope provides helpers to capture and restore job provenance
// (source, correlation ID, parent job) from/to context.Context.
//
// The dispatcher stamps provenance from the context onto newly created
// jobs, and the executor restores it before invoking handlers, so jobs
// enqueued from inside a handler inherit the triggering job's lineage.
package scope

import (
	"context"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
)

type ctxKey struct{}

// Provenance describes where a job came from.
type Provenance struct {
	// Source names the origin of the work, e.g. "webhook" or "replay".
	Source string
	// CorrelationID ties together all jobs spawned by one triggering event.
	CorrelationID string
	// ParentID is the job whose handler enqueued this one, if any.
	ParentID id.ID
}

// Capture extracts the provenance from the context.
// Returns the zero value if none is present.
func Capture(ctx context.Context) Provenance {
	p, _ := ctx.Value(ctxKey{}).(Provenance)
	return p
}

// Restore attaches provenance to the context. If the provenance is
// empty, the context is returned unchanged.
func Restore(ctx context.Context, p Provenance) context.Context {
	if p.Source == "" && p.CorrelationID == "" && p.ParentID.IsNil() {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, p)
}
