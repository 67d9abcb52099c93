package operator

import (
	"context"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/emit"
	"github.com/dshills/flowgraph-engine/graph/model"
)

// LLM implements the `llm` vertex (§4.5.3): one gateway completion over the
// resolved inbound payload, with streamed tokens forwarded to the event
// bus as they arrive.
type LLM struct {
	Gateway *model.Gateway
}

func (o LLM) Execute(ctx context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, cancelDone <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	modelID, err := requireString(v, "model")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	temperature, err := configFloat(v, "temperature", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	if temperature < 0 || temperature > 2 {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "temperature out of range [0,2]", nil)
	}
	systemPrompt, err := configString(v, "system_prompt", "")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}

	messages := buildMessages(systemPrompt, inbound)

	out, usage, err := completeOne(ctx, o.Gateway, modelID, messages, temperature, v.ID, pub, cancelDone)
	if err != nil {
		return "", err
	}
	pub.NodeUsage(v.ID, usage)
	pub.NodeFinish(v.ID, out.Text)
	return out.Text, nil
}

// buildMessages assembles the two-turn conversation a gateway call sends:
// an optional system prompt followed by the operator's user-role payload.
func buildMessages(systemPrompt, userText string) []model.Message {
	var messages []model.Message
	if systemPrompt != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, model.Message{Role: model.RoleUser, Content: userText})
	return messages
}

// completeOne calls gw.Complete and publishes node_failed/node_failed(
// cancelled) on failure before returning a classified error. Used by
// operators for which any model failure fails the whole vertex (llm,
// reducer, moa-aggregator, voting). moa-proposer uses rawComplete instead,
// since there a failed proposer degrades in place without ending the
// vertex; self-consistency and debate call rawComplete in parallel and
// publish one failure through publishAggregateFailure.
func completeOne(ctx context.Context, gw *model.Gateway, modelID string, messages []model.Message, temperature float64, vertexID string, pub graph.Publisher, cancelDone <-chan struct{}) (model.ChatOut, emit.Usage, error) {
	out, usage, err := rawComplete(ctx, gw, modelID, messages, temperature, vertexID, pub, cancelDone)
	if err != nil {
		if ctx.Err() != nil {
			return model.ChatOut{}, emit.Usage{}, cancelledErr(vertexID, pub, err)
		}
		kind := graph.KindModelUnavailable
		if looksLikeTimeout(err) {
			kind = graph.KindModelTimeout
		}
		return model.ChatOut{}, emit.Usage{}, failNode(vertexID, pub, kind, err.Error(), err)
	}
	return out, usage, nil
}

// rawComplete calls gw.Complete and returns its classified-or-not outcome
// without publishing any event, so a caller that tolerates a single
// model's failure (moa-proposer) can degrade it without ending the vertex.
func rawComplete(ctx context.Context, gw *model.Gateway, modelID string, messages []model.Message, temperature float64, vertexID string, pub graph.Publisher, cancelDone <-chan struct{}) (model.ChatOut, emit.Usage, error) {
	sink := func(tok string) { pub.TokenStream(vertexID, tok) }
	out, err := gw.Complete(ctx, modelID, messages, temperature, sink, cancelDone)
	if err != nil {
		return model.ChatOut{}, emit.Usage{}, err
	}
	usage := emit.Usage{
		InputTokens:  out.InputTokens,
		OutputTokens: out.OutputTokens,
		TotalTokens:  out.InputTokens + out.OutputTokens,
	}
	return out, usage, nil
}

// publishAggregateFailure classifies and publishes exactly one node_failed
// for a vertex whose fan-out of parallel rawComplete calls (self-consistency
// samples, debate positions) failed. Call it once, after errgroup.Wait
// returns the first error from potentially several goroutines — never from
// inside a goroutine itself — so the vertex's terminal event fires once
// regardless of how many samples/positions failed or were cancelled as a
// side effect of a sibling's failure cancelling the shared errgroup context.
func publishAggregateFailure(ctx context.Context, vertexID string, pub graph.Publisher, err error) error {
	if ctx.Err() != nil {
		return cancelledErr(vertexID, pub, err)
	}
	kind := graph.KindModelUnavailable
	if looksLikeTimeout(err) {
		kind = graph.KindModelTimeout
	}
	return failNode(vertexID, pub, kind, err.Error(), err)
}
