package operator

import (
	"context"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/model"
)

const (
	synthesisSystemPrompt = "You are synthesizing multiple model proposals into one answer. " +
		"The input is a JSON object mapping model id to that model's proposed answer. " +
		"Combine the strongest elements of each proposal into a single coherent response."
	critiqueSystemPrompt = "You are critiquing multiple model proposals, then selecting or revising the best one. " +
		"The input is a JSON object mapping model id to that model's proposed answer. " +
		"First critique each proposal briefly, then produce a final answer."
	bestSystemPrompt = "You are selecting the single best proposal among several model proposals, verbatim. " +
		"The input is a JSON object mapping model id to that model's proposed answer. " +
		"Reply with exactly one of the proposals, unchanged."
)

// MoAAggregator implements the `moa-aggregator` vertex (§4.5.11): a single
// completion over a preceding proposer's JSON output, guided by a
// strategy-specific system prompt.
type MoAAggregator struct {
	Gateway *model.Gateway
}

func (o MoAAggregator) Execute(ctx context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, cancelDone <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	modelID, err := requireString(v, "model")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	temperature, err := configFloat(v, "temperature", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	strategy, err := requireString(v, "strategy")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}

	var systemPrompt string
	switch strategy {
	case "synthesis":
		systemPrompt = synthesisSystemPrompt
	case "critique":
		systemPrompt = critiqueSystemPrompt
	case "best":
		systemPrompt = bestSystemPrompt
	default:
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "strategy: unknown "+strategy, nil)
	}

	messages := buildMessages(systemPrompt, inbound)
	out, usage, err := completeOne(ctx, o.Gateway, modelID, messages, temperature, v.ID, pub, cancelDone)
	if err != nil {
		return "", err
	}
	pub.NodeUsage(v.ID, usage)

	result := out.Text
	if strategy == "critique" {
		result = normalizeWorkingNotes(result)
	}
	pub.NodeFinish(v.ID, result)
	return result, nil
}
