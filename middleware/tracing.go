package middleware

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// tracerName is the instrumentation scope name for engine tracing.
const tracerName = "github.com/ronnygunawan/RG.OpenCopilot-sub005"

// Tracing returns middleware that wraps job execution in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through with zero overhead.
//
// Span attributes include: copilot.job.id, copilot.job.type,
// copilot.job.retry_count, copilot.job.source, copilot.job.correlation_id.
// On a failed result, the span status is set to codes.Error with the
// handler's error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) job.Result {
		ctx, span := tracer.Start(ctx, "copilot.job.execute",
			trace.WithAttributes(
				attribute.String("copilot.job.id", j.ID.String()),
				attribute.String("copilot.job.type", j.Type),
				attribute.Int("copilot.job.retry_count", j.RetryCount),
				attribute.String("copilot.job.source", j.Source),
				attribute.String("copilot.job.correlation_id", j.CorrelationID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		res := next(ctx)
		if !res.Success {
			span.RecordError(errors.New(res.ErrorMessage))
			span.SetStatus(codes.Error, res.ErrorMessage)
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return res
	}
}
