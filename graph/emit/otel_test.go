package emit

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOTelEmitterRecordsSpanPerEvent(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(tp.Tracer("flowgraph-test"))
	emitter.Emit(Event{SessionID: "s1", VertexID: "a", Type: TypeNodeStart})
	emitter.Emit(Event{SessionID: "s1", VertexID: "a", Type: TypeNodeFailed, Kind: "cancelled", Error: "client disconnected"})

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("len(spans) = %d, want 2", len(spans))
	}
	if spans[0].Name() != string(TypeNodeStart) {
		t.Errorf("spans[0].Name() = %s, want %s", spans[0].Name(), TypeNodeStart)
	}
	if spans[1].Status().Description != "client disconnected" {
		t.Errorf("status description = %q, want %q", spans[1].Status().Description, "client disconnected")
	}
}
