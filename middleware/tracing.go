package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/UniQw/uniqm-go"
)

// tracerName is the instrumentation scope name for uniqm tracing.
const tracerName = "github.com/UniQw/uniqm-go"

// Tracing returns middleware that wraps each callback in an OpenTelemetry
// span, using the global TracerProvider.
func Tracing() uniqm.Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
//
// Span attributes: uniqm.job.id, uniqm.queue, uniqm.action. On error the
// span status is set to codes.Error with the error message.
func TracingWithTracer(tracer trace.Tracer) uniqm.Middleware {
	return func(next uniqm.HandlerFunc) uniqm.HandlerFunc {
		return func(ctx context.Context, payload []byte) (any, error) {
			job, _ := uniqm.JobFromContext(ctx)
			ctx, span := tracer.Start(ctx, "uniqm.job.execute",
				trace.WithAttributes(
					attribute.String("uniqm.job.id", job.ID),
					attribute.String("uniqm.queue", job.Queue),
					attribute.String("uniqm.action", job.Action),
					attribute.Int("uniqm.payload.bytes", len(payload)),
				),
				trace.WithSpanKind(trace.SpanKindConsumer),
			)
			defer span.End()

			v, err := next(ctx, payload)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return v, err
		}
	}
}
