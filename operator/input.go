package operator

import (
	"context"

	"github.com/dshills/flowgraph-engine/graph"
)

// Input implements the `input` vertex (§4.5.1): no I/O, result is the
// vertex's authoring-time seed.
type Input struct{}

func (Input) Execute(_ context.Context, v *graph.Vertex, _ string, pub graph.Publisher, _ <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)
	pub.NodeFinish(v.ID, v.Seed)
	return v.Seed, nil
}
