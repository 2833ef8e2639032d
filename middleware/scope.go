package middleware

import (
	"context"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/scope"
)

// Scope returns middleware that restores the job's provenance
// (source, correlation ID, own ID as parent) into the context, so jobs
// enqueued from inside a handler inherit the triggering job's lineage.
func Scope() Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) job.Result {
		ctx = scope.Restore(ctx, scope.Provenance{
			Source:        j.Source,
			CorrelationID: j.CorrelationID,
			ParentID:      j.ID,
		})
		return next(ctx)
	}
}
