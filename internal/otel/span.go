// Package otel holds the span helpers and attribute keys shared by the sync server.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys recorded on sync spans
const (
	AttrUserID       = attribute.Key("user.id")
	AttrSyncPhase    = attribute.Key("sync.phase")
	AttrSyncAttempt  = attribute.Key("sync.attempt")
	AttrWindowFrom   = attribute.Key("sync.window.from")
	AttrWindowTo     = attribute.Key("sync.window.to")
	AttrHasCursor    = attribute.Key("sync.has_cursor")
	AttrResultCount  = attribute.Key("result.count")
	AttrResourceName = attribute.Key("fitbit.resource")
)

// StartSpan starts a span on tracer, or returns the span already in ctx when tracer is nil
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks the span failed. The status
// description stays generic; details live in the recorded event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
