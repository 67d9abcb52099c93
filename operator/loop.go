package operator

import (
	"context"
	"strings"
	"sync"

	"github.com/dshills/flowgraph-engine/graph"
)

// Loop implements the `loop` vertex (§4.5.6): a controllable re-entry
// point with two outgoing ports, loop and done. State is per-vertex-id and
// scoped to one Loop instance, which a session wires fresh per run (see
// dispatch.go) so iteration counters never leak across sessions.
type Loop struct {
	mu      sync.Mutex
	seen    map[string]bool
	counter map[string]int
}

// NewLoop builds a Loop operator with fresh per-run iteration state.
func NewLoop() *Loop {
	return &Loop{seen: make(map[string]bool), counter: make(map[string]int)}
}

func (o *Loop) Execute(_ context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, _ <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	maxIterations, err := configInt(v, "max_iterations", 1)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	if maxIterations < 1 {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "max_iterations must be >= 1", nil)
	}
	targetText, err := configString(v, "target_text", "")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}

	counter := o.advance(v.ID)

	shouldContinue := counter < maxIterations && (targetText == "" || !strings.Contains(inbound, targetText))

	port := graph.LoopDone
	if shouldContinue {
		port = graph.LoopContinue
	}

	pub.NodeFinish(v.ID, inbound)
	return graph.EncodeLoopResult(graph.LoopResult{Port: port, Text: inbound}), nil
}

// advance returns the iteration counter for this call: zero on the vertex's
// first execution, incrementing by one on every subsequent delivery (each
// of which arrives over the loop's back-edge per §4.6).
func (o *Loop) advance(vertexID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.seen[vertexID] {
		o.seen[vertexID] = true
		o.counter[vertexID] = 0
		return 0
	}
	o.counter[vertexID]++
	return o.counter[vertexID]
}
