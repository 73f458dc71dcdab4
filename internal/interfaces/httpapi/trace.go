package httpapi

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var apiTracer = otel.Tracer("esports-fantasy/httpapi")

// startSpan opens "httpapi.<handler>" under the otelhttp request span.
// Requests the otelhttp filter skipped (/healthz, /metrics) have no parent
// and get the no-op span already on ctx.
func startSpan(ctx context.Context, handler string) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		return ctx, parent
	}
	return apiTracer.Start(ctx, "httpapi."+handler)
}

// traceIDs returns the hex trace and span IDs of the active span, or blanks.
func traceIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
