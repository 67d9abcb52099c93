// Package graph provides the core graph execution engine.
package graph

import "errors"

// Error kind strings surfaced verbatim in node_failed.kind and
// execution_error.error (see spec §7). Stable across releases: clients
// match on them.
const (
	KindInvalidGraph      = "invalid-graph"
	KindModelUnavailable  = "model-unavailable"
	KindModelTimeout      = "model-timeout"
	KindSearchUnavailable = "search-unavailable"
	KindOperatorBadConfig = "operator-invalid-config"
	KindCancelled         = "cancelled"
	KindSchedulerStuck    = "scheduler-stuck"
)

// ErrNoProgress indicates the ready set emptied with unterminated vertices
// still pending — an invariant violation (§4.6 Termination), not a user
// error. The scheduler surfaces it as execution_error(scheduler-stuck).
var ErrNoProgress = errors.New("scheduler stalled: pending vertices remain with an empty ready set")

// EngineError is a run-level fault that invalidates the entire session: an
// invalid submitted graph, or an internal invariant violation. It
// terminates the run via execution_error. Distinguish from NodeError,
// which is scoped to one vertex and never aborts sibling branches.
type EngineError struct {
	Message string
	Code    string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

func (e *EngineError) Unwrap() error { return e.Cause }

// NodeError is the structured failure a single vertex execution produces.
// The scheduler turns it into node_failed plus a skip propagation along
// every outgoing edge; it never aborts the run.
type NodeError struct {
	VertexID string
	Kind     string
	Message  string
	Cause    error
}

func (e *NodeError) Error() string {
	if e.VertexID != "" {
		return "vertex " + e.VertexID + ": " + e.Message
	}
	return e.Message
}

func (e *NodeError) Unwrap() error { return e.Cause }
