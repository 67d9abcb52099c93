package operator

import (
	"context"
	"strings"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/emit"
	"github.com/dshills/flowgraph-engine/graph/model"
)

// Reducer implements the `reducer` vertex (§4.5.8): collapses a chunk list
// (or a single opaque chunk, if the inbound payload isn't one) down to one
// summary text.
type Reducer struct {
	Gateway *model.Gateway
}

func (o Reducer) Execute(ctx context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, cancelDone <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	strategy, err := requireString(v, "strategy")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}

	chunks, ok := decodeChunks(inbound)
	if !ok {
		chunks = []string{inbound}
	}

	switch strategy {
	case "concatenate":
		result := strings.Join(chunks, "\n\n")
		pub.NodeFinish(v.ID, result)
		return result, nil
	case "hierarchical":
		return o.hierarchical(ctx, v, chunks, pub, cancelDone)
	default:
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "strategy: unknown "+strategy, nil)
	}
}

func (o Reducer) hierarchical(ctx context.Context, v *graph.Vertex, chunks []string, pub graph.Publisher, cancelDone <-chan struct{}) (string, error) {
	modelID, err := requireString(v, "model")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	temperature, err := configFloat(v, "temperature", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	prompt, err := configString(v, "prompt", "")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}

	summaries := make([]string, len(chunks))
	for i, c := range chunks {
		text, usage, err := o.summarize(ctx, v.ID, modelID, prompt, c, temperature, pub, cancelDone)
		if err != nil {
			return "", err
		}
		pub.NodeUsage(v.ID, usage)
		summaries[i] = text
	}

	for len(summaries) > 1 {
		summaries, err = o.reduceLevel(ctx, v.ID, modelID, prompt, summaries, temperature, pub, cancelDone)
		if err != nil {
			return "", err
		}
	}

	result := ""
	if len(summaries) > 0 {
		result = summaries[0]
	}
	pub.NodeFinish(v.ID, result)
	return result, nil
}

// reduceLevel combines summaries pairwise into one level of a hierarchical
// reduction; an odd summary out carries over to the next level untouched.
func (o Reducer) reduceLevel(ctx context.Context, vertexID, modelID, prompt string, summaries []string, temperature float64, pub graph.Publisher, cancelDone <-chan struct{}) ([]string, error) {
	var next []string
	for i := 0; i+1 < len(summaries); i += 2 {
		combined := normalizeWorkingNotes(summaries[i]) + "\n\n" + normalizeWorkingNotes(summaries[i+1])
		text, usage, err := o.summarize(ctx, vertexID, modelID, prompt, combined, temperature, pub, cancelDone)
		if err != nil {
			return nil, err
		}
		pub.NodeUsage(vertexID, usage)
		next = append(next, text)
	}
	if len(summaries)%2 == 1 {
		next = append(next, summaries[len(summaries)-1])
	}
	return next, nil
}

func (o Reducer) summarize(ctx context.Context, vertexID, modelID, prompt, text string, temperature float64, pub graph.Publisher, cancelDone <-chan struct{}) (string, emit.Usage, error) {
	out, usage, err := completeOne(ctx, o.Gateway, modelID, buildMessages(prompt, text), temperature, vertexID, pub, cancelDone)
	if err != nil {
		return "", emit.Usage{}, err
	}
	return out.Text, usage, nil
}
