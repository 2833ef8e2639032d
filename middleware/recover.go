package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are logged with a stack trace and converted to a retryable
// failure, so a panicking job goes through the normal retry path
// instead of killing its worker.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (res job.Result) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("job handler panicked",
					slog.String("job_type", j.Type),
					slog.String("job_id", j.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				res = job.Result{
					ErrorMessage: fmt.Sprintf("panic in job %s: %v", j.Type, r),
					ShouldRetry:  true,
				}
			}
		}()
		return next(ctx)
	}
}
