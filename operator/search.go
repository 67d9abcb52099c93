package operator

import (
	"context"

	"github.com/dshills/flowgraph-engine/graph"
	searchclient "github.com/dshills/flowgraph-engine/graph/search"
)

// Search implements the `search` vertex (§4.5.4): one query against the
// search client, query is the config override if set, else the inbound
// payload.
type Search struct {
	Client *searchclient.Client
}

func (o Search) Execute(ctx context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, cancelDone <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	override, err := configString(v, "query", "")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	query := override
	if query == "" {
		query = inbound
	}

	results, err := o.Client.Search(ctx, query, cancelDone)
	if err != nil {
		if ctx.Err() != nil {
			return "", cancelledErr(v.ID, pub, ctx.Err())
		}
		kind := graph.KindSearchUnavailable
		return "", failNode(v.ID, pub, kind, err.Error(), err)
	}

	text := searchclient.MergeText(results)
	pub.NodeFinish(v.ID, text)
	return text, nil
}
