package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// Logging returns middleware that logs job start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) job.Result {
		logger.Info("job started",
			slog.String("job_type", j.Type),
			slog.String("job_id", j.ID.String()),
			slog.Int("retry_count", j.RetryCount),
		)

		start := time.Now()
		res := next(ctx)
		elapsed := time.Since(start)

		if !res.Success {
			logger.Error("job failed",
				slog.String("job_type", j.Type),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.Bool("retryable", res.ShouldRetry),
				slog.String("error", res.ErrorMessage),
			)
		} else {
			logger.Info("job completed",
				slog.String("job_type", j.Type),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return res
	}
}
