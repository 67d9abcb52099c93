package operator

import (
	"context"
	"strings"

	"github.com/dshills/flowgraph-engine/graph"
)

// Condition implements the `condition` vertex (§4.5.5): evaluates a
// predicate against the inbound payload and routes onto the matching port.
type Condition struct{}

func (Condition) Execute(_ context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, _ <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	op, err := requireString(v, "operator")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	target, err := configString(v, "target", "")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}

	var result bool
	switch op {
	case "contains":
		result = strings.Contains(inbound, target)
	case "not_contains":
		result = !strings.Contains(inbound, target)
	case "equals":
		result = inbound == target
	default:
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "operator: unknown predicate "+op, nil)
	}

	text := "false"
	port := graph.PortFalse
	if result {
		text = "true"
		port = graph.PortTrue
	}

	pub.NodeFinish(v.ID, text)
	return graph.EncodeRoutedResult(port, text), nil
}
