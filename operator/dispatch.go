package operator

import (
	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/model"
	searchclient "github.com/dshills/flowgraph-engine/graph/search"
)

// NewDispatch builds the graph.Dispatch table a session hands to
// graph.Run, one Operator per vertex kind. Call it once per session: the
// loop operator carries per-vertex iteration state scoped to a single run
// (see Loop), so a Dispatch must never be reused across concurrent runs.
func NewDispatch(gw *model.Gateway, sc *searchclient.Client) graph.Dispatch {
	return graph.Dispatch{
		graph.KindInput:           Input{},
		graph.KindOutput:          Output{},
		graph.KindLLM:             LLM{Gateway: gw},
		graph.KindSearch:          Search{Client: sc},
		graph.KindCondition:       Condition{},
		graph.KindLoop:            NewLoop(),
		graph.KindSplitter:        Splitter{},
		graph.KindReducer:         Reducer{Gateway: gw},
		graph.KindSelfConsistency: SelfConsistency{Gateway: gw},
		graph.KindMoAProposer:     MoAProposer{Gateway: gw},
		graph.KindMoAAggregator:   MoAAggregator{Gateway: gw},
		graph.KindDebate:          Debate{Gateway: gw},
		graph.KindVoting:          Voting{Gateway: gw},
	}
}
