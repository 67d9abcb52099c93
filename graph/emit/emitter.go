package emit

import "context"

// Emitter receives events published during a session: the websocket sink
// that serializes them to the client, plus any number of side sinks
// (structured logging, the optional debug store, OpenTelemetry spans).
//
// Implementations must not block the publishing vertex for long: a slow
// Emit stalls the operator goroutine that called it, which in turn stalls
// its token_stream callback (§9 "must not block for I/O"). Buffer or
// fan out asynchronously if the backend is slow.
type Emitter interface {
	Emit(event Event)

	// EmitBatch sends multiple events as one operation. Implementations
	// must preserve the slice's order (the per-vertex ordering guarantees
	// in §4.4 depend on it).
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until every previously buffered event has been
	// delivered or reports an error doing so. Safe to call more than once.
	Flush(ctx context.Context) error
}

// Bus fans one session's events out to every registered Emitter and
// assigns each event its Ordinal. It is the single point through which
// the scheduler and every operator publish, and is itself the boundary
// where the C4 event-bus's single-consumer-many-producer property lives:
// many operator goroutines call Publish concurrently, Bus serializes them
// under one lock before handing off to sinks.
type Bus struct {
	sessionID string
	sinks     []Emitter

	mu      chan struct{} // 1-buffered mutex; see Publish
	ordinal int64
}

// NewBus creates a Bus that stamps every event with sessionID and fans it
// out to sinks in order. At least one sink should be present (the
// websocket client sink); additional sinks are optional.
func NewBus(sessionID string, sinks ...Emitter) *Bus {
	b := &Bus{sessionID: sessionID, sinks: sinks, mu: make(chan struct{}, 1)}
	b.mu <- struct{}{}
	return b
}

// Publish assigns the next ordinal, stamps SessionID, and emits to every
// sink in registration order. Concurrent callers are serialized so that
// Ordinal values reflect true publish order even under concurrent operator
// fan-out (self-consistency samples, MoA proposers, parallel branches).
func (b *Bus) Publish(e Event) {
	<-b.mu
	b.ordinal++
	e.SessionID = b.sessionID
	e.Ordinal = b.ordinal
	for _, sink := range b.sinks {
		sink.Emit(e)
	}
	b.mu <- struct{}{}
}

// NodeStart publishes a node_start event for vertexID.
func (b *Bus) NodeStart(vertexID string) {
	b.Publish(Event{Type: TypeNodeStart, VertexID: vertexID})
}

// TokenStream publishes one streamed token for vertexID. Must not block:
// callers are typically inside a C2 streaming loop.
func (b *Bus) TokenStream(vertexID, token string) {
	b.Publish(Event{Type: TypeTokenStream, VertexID: vertexID, Token: token})
}

// NodeUsage publishes accounted token usage for vertexID.
func (b *Bus) NodeUsage(vertexID string, usage Usage) {
	b.Publish(Event{Type: TypeNodeUsage, VertexID: vertexID, Usage: usage})
}

// NodeFinish publishes the terminal success event for vertexID.
func (b *Bus) NodeFinish(vertexID, result string) {
	b.Publish(Event{Type: TypeNodeFinish, VertexID: vertexID, Result: result})
}

// NodeFailed publishes the terminal failure event for vertexID. kind is
// one of the stable error-kind strings in spec §7.
func (b *Bus) NodeFailed(vertexID, kind, errMsg string) {
	b.Publish(Event{Type: TypeNodeFailed, VertexID: vertexID, Kind: kind, Error: errMsg})
}

// NodeSkipped publishes the terminal skip event for vertexID, the
// propagation result of every inbound edge having been disabled.
func (b *Bus) NodeSkipped(vertexID string) {
	b.Publish(Event{Type: TypeNodeSkipped, VertexID: vertexID})
}

// ExecutionComplete publishes the single run terminator for a successful
// session.
func (b *Bus) ExecutionComplete() {
	b.Publish(Event{Type: TypeExecutionComplete})
}

// ExecutionError publishes the single run terminator for a session
// invalidated by a run-level fault.
func (b *Bus) ExecutionError(kind, errMsg string) {
	b.Publish(Event{Type: TypeExecutionError, Kind: kind, Error: errMsg})
}

// Flush flushes every sink, returning the first error encountered after
// attempting all of them.
func (b *Bus) Flush(ctx context.Context) error {
	var first error
	for _, sink := range b.sinks {
		if err := sink.Flush(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
