package operator

import (
	"context"
	"sync"

	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/model"
)

const moaUnavailablePlaceholder = "<unavailable>"

// MoAProposer implements the `moa-proposer` vertex (§4.5.10): one parallel
// completion per configured model, assembled into an order-preserving JSON
// object. A single proposer's failure degrades that entry to a placeholder
// rather than failing the vertex (§9 open question, resolved as
// degradation).
type MoAProposer struct {
	Gateway *model.Gateway
}

func (o MoAProposer) Execute(ctx context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, cancelDone <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	models, err := configStringSlice(v, "models")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	if len(models) == 0 {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "models: required, at least one", nil)
	}
	temperature, err := configFloat(v, "temperature", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}

	// entries[i] holds the proposer's text, or "" if it failed (rendered as
	// the unavailable placeholder below).
	entries := make([]string, len(models))
	var mu sync.Mutex
	var cancelled error

	var eg errgroup.Group
	for i, modelID := range models {
		i, modelID := i, modelID
		eg.Go(func() error {
			messages := buildMessages("", inbound)
			out, usage, err := rawComplete(ctx, o.Gateway, modelID, messages, temperature, v.ID, pub, cancelDone)
			if err != nil {
				if ctx.Err() != nil {
					mu.Lock()
					if cancelled == nil {
						cancelled = ctx.Err()
					}
					mu.Unlock()
				}
				return nil
			}
			pub.NodeUsage(v.ID, usage)
			mu.Lock()
			entries[i] = out.Text
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	if cancelled != nil {
		return "", cancelledErr(v.ID, pub, cancelled)
	}

	result := "{}"
	for i, modelID := range models {
		text := entries[i]
		if text == "" {
			text = moaUnavailablePlaceholder
		}
		var setErr error
		result, setErr = sjson.Set(result, modelID, text)
		if setErr != nil {
			return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "model id not a valid JSON key: "+modelID, setErr)
		}
	}

	pub.NodeFinish(v.ID, result)
	return result, nil
}
