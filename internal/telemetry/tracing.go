package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	// Trace operation names
	TraceSession       = "audioplay.session"
	TraceCreatorSelect = "audioplay.creator.select"
	TracePlay          = "audioplay.player.play"

	// Attribute keys
	AttrSessionID    = "audioplay.session.id"
	AttrPlatform     = "audioplay.platform"
	AttrPreferred    = "audioplay.platform.preferred"
	AttrPlayerType   = "audioplay.player.type"
	AttrFilePath     = "audioplay.file.path"
	AttrFilePathSize = "audioplay.file.path_length"
	AttrOutcome      = "audioplay.play.outcome"
	AttrErrorType    = "audioplay.error.type"
)

// TraceHelper provides helper methods for creating traces
type TraceHelper struct {
	tracer oteltrace.Tracer
}

// StartSpan starts a new tracing span with common attributes
func (th *TraceHelper) StartSpan(ctx context.Context, operationName string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return th.tracer.Start(ctx, operationName, oteltrace.WithAttributes(attrs...))
}

// RecordError records an error on the span
func (th *TraceHelper) RecordError(span oteltrace.Span, err error, description string) {
	if err != nil {
		span.SetStatus(codes.Error, description)
		span.RecordError(err, oteltrace.WithAttributes(
			attribute.String(AttrErrorType, description),
		))
	}
}

// SetSpanSuccess marks span as successful
func (th *TraceHelper) SetSpanSuccess(span oteltrace.Span) {
	span.SetStatus(codes.Ok, "Success")
}

// TraceCreatorSelectFunc traces the choice of player creator for a platform
func (th *TraceHelper) TraceCreatorSelectFunc(ctx context.Context, platform, preferred string, fn func(context.Context) error) error {
	ctx, span := th.StartSpan(ctx, TraceCreatorSelect,
		attribute.String(AttrPlatform, platform),
		attribute.String(AttrPreferred, preferred),
	)
	defer span.End()

	if err := fn(ctx); err != nil {
		th.RecordError(span, err, "no creator for platform")
		return err
	}

	th.SetSpanSuccess(span)
	return nil
}

// TracePlayFunc traces a single Play call. The file path is recorded as
// given, including when it is empty.
func (th *TraceHelper) TracePlayFunc(ctx context.Context, platform, playerType, filePath string, fn func(context.Context) error) error {
	ctx, span := th.StartSpan(ctx, TracePlay,
		attribute.String(AttrPlatform, platform),
		attribute.String(AttrPlayerType, playerType),
		attribute.String(AttrFilePath, filePath),
		attribute.Int(AttrFilePathSize, len(filePath)),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	span.SetAttributes(
		attribute.Int64("duration_ms", duration.Milliseconds()),
	)

	if err != nil {
		span.SetAttributes(attribute.String(AttrOutcome, "error"))
		th.RecordError(span, err, "play failed")
		return err
	}

	span.SetAttributes(attribute.String(AttrOutcome, "ok"))
	th.SetSpanSuccess(span)
	return nil
}
