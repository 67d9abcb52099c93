package graph

import (
	"context"

	"github.com/dshills/flowgraph-engine/graph/emit"
)

// Publisher is the slice of *emit.Bus an operator needs: the C4 surface
// the C5 contract requires (node_start before I/O, a single terminal
// event before returning). Declared here rather than depending on *emit.Bus
// directly so a test can substitute a recording fake.
type Publisher interface {
	NodeStart(vertexID string)
	TokenStream(vertexID, token string)
	NodeUsage(vertexID string, usage emit.Usage)
	NodeFinish(vertexID, result string)
	NodeFailed(vertexID, kind, errMsg string)
	NodeSkipped(vertexID string)
	ExecutionComplete()
	ExecutionError(kind, errMsg string)
}

var _ Publisher = (*emit.Bus)(nil)

// Operator executes one vertex kind. inbound is the resolved payload
// already merged across predecessors (§4.6); cancelDone closed preempts
// in-flight retries inside the operator's own C2/C3 calls. Execute must
// publish node_start via pub before any I/O and exactly one terminal event
// (node_finish or node_failed) before returning — the scheduler treats the
// returned (result, error) as authoritative but does not re-publish
// terminal events itself.
//
// The two multi-output kinds, condition and loop, report which outbound
// port should receive the result by encoding it into the returned string
// via EncodeRoutedResult/EncodeLoopResult rather than through a
// kind-specific interface method, so Operator's signature stays uniform
// across all thirteen vertex kinds.
type Operator interface {
	Execute(ctx context.Context, v *Vertex, inbound string, pub Publisher, cancelDone <-chan struct{}) (string, error)
}

// LoopPort is returned by a loop vertex's operator embedded in its result
// via LoopResult so the scheduler knows which port to route on, since a
// loop vertex's Execute return value must disambiguate "continue" from
// "done" through the same single string every other kind returns.
type LoopPort string

const (
	LoopContinue LoopPort = PortLoop
	LoopDone     LoopPort = PortDone
)

// LoopResult is the payload a loop operator hands back through the
// ordinary Operator.Execute return value, encoded by the loop executor and
// decoded by the scheduler — see graph.EncodeLoopResult /
// graph.DecodeLoopResult.
type LoopResult struct {
	Port LoopPort
	Text string
}

// Dispatch routes a Vertex.Kind to the Operator that implements it. The
// scheduler rejects a vertex whose kind has no entry — Validate already
// guarantees every kind is one of ValidKinds, so a missing entry here is a
// wiring bug in the session that assembled the Dispatch table, not a user
// error.
type Dispatch map[Kind]Operator
