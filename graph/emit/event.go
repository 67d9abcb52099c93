// Package emit implements the C4 event bus: per-vertex ordering guarantees
// over a stream of typed events published by the scheduler and by operators
// as they run.
package emit

// Type is the wire-level event discriminator (spec §6, §7). The set is
// closed — the session controller serializes no other value in the "type"
// field of a server-to-client message.
type Type string

const (
	TypeNodeStart         Type = "node_start"
	TypeTokenStream       Type = "token_stream"
	TypeNodeUsage         Type = "node_usage"
	TypeNodeFinish        Type = "node_finish"
	TypeNodeFailed        Type = "node_failed"
	TypeNodeSkipped       Type = "node_skipped"
	TypeExecutionComplete Type = "execution_complete"
	TypeExecutionError    Type = "execution_error"
)

// Usage carries token accounting for a node_usage event (§4.2, §6).
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Event is one emission on the bus. VertexID is empty for the two
// run-level types (execution_complete, execution_error); the bus sets
// SessionID on every event, run-level ones included. Ordinal
// is a monotonically increasing per-session sequence number assigned by
// the bus at publish time, used by emitters that need a total order for
// display or storage even though the bus itself only guarantees the
// per-vertex ordering in §4.4.
type Event struct {
	SessionID string
	Ordinal   int64
	Type      Type
	VertexID  string

	Token   string // TypeTokenStream
	Usage   Usage  // TypeNodeUsage
	Result  string // TypeNodeFinish
	Error   string // TypeNodeFailed, TypeExecutionError
	Kind    string // TypeNodeFailed.Kind, TypeExecutionError.Kind — stable error-kind strings from spec §7
}
