package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each event into a zero-duration span: a point-in-time
// marker rather than a span covering the vertex's full execution, since
// the bus has no "end" hook distinct from the terminal event itself.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an OTelEmitter using tracer, typically
// otel.Tracer("flowgraph").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), string(event.Type))
	defer span.End()
	o.annotate(span, event)
}

func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, string(event.Type))
		o.annotate(span, event)
		span.End()
	}
	return nil
}

func (o *OTelEmitter) annotate(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("flowgraph.session_id", event.SessionID),
		attribute.Int64("flowgraph.ordinal", event.Ordinal),
		attribute.String("flowgraph.vertex_id", event.VertexID),
	)
	switch event.Type {
	case TypeTokenStream:
		span.SetAttributes(attribute.Int("flowgraph.token_len", len(event.Token)))
	case TypeNodeUsage:
		span.SetAttributes(
			attribute.Int("flowgraph.usage.input_tokens", event.Usage.InputTokens),
			attribute.Int("flowgraph.usage.output_tokens", event.Usage.OutputTokens),
			attribute.Int("flowgraph.usage.total_tokens", event.Usage.TotalTokens),
		)
	case TypeNodeFinish:
		span.SetAttributes(attribute.Int("flowgraph.result_len", len(event.Result)))
	case TypeNodeFailed, TypeExecutionError:
		span.SetAttributes(attribute.String("flowgraph.error_kind", event.Kind))
		span.SetStatus(codes.Error, event.Error)
		span.RecordError(fmt.Errorf("%s", event.Error))
	}
}

// Flush force-flushes the active tracer provider if it supports it (the
// SDK provider does; the global no-op provider does not).
func (o *OTelEmitter) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}
