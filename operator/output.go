package operator

import (
	"context"

	"github.com/dshills/flowgraph-engine/graph"
)

// Output implements the `output` vertex (§4.5.2): a terminal pass-through,
// no I/O.
type Output struct{}

func (Output) Execute(_ context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, _ <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)
	pub.NodeFinish(v.ID, inbound)
	return inbound, nil
}
