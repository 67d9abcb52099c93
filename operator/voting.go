package operator

import (
	"context"
	"strings"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/model"
)

const (
	judgeSystemPrompt     = "You are judging the material below and must produce a reasoned verdict."
	consensusSystemPrompt = "You are finding consensus across the positions in the material below. " +
		"Produce the narrowest statement all of them would agree with."
)

// Voting implements the `voting` vertex (§4.5.13): a verdict over the
// inbound payload, by majority vote over parsed candidates or by a single
// judging/consensus-seeking completion.
type Voting struct {
	Gateway *model.Gateway
}

func (o Voting) Execute(ctx context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, cancelDone <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	method, err := requireString(v, "method")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	temperature, err := configFloat(v, "temperature", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}

	if method == "majority" {
		verdict := majorityOfCandidates(parseCandidates(inbound))
		pub.NodeFinish(v.ID, verdict)
		return verdict, nil
	}

	modelID, err := requireString(v, "model")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}

	var systemPrompt string
	switch method {
	case "judge":
		systemPrompt = judgeSystemPrompt
	case "consensus":
		systemPrompt = consensusSystemPrompt
	default:
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "method: unknown "+method, nil)
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

// parseCandidates splits voting material into candidate answers on commas
// and newlines, trimming surrounding whitespace and dropping empties.
func parseCandidates(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// majorityOfCandidates groups candidates into normalized equivalence
// classes and returns the representative of the largest one, ties broken
// by the candidate that occurred earliest.
func majorityOfCandidates(candidates []string) string {
	type group struct {
		rep      string
		count    int
		firstIdx int
	}
	groups := make(map[string]*group)
	var order []string
	for idx, c := range candidates {
		norm := normalizeAnswer(c)
		g, ok := groups[norm]
		if !ok {
			g = &group{rep: c, firstIdx: idx}
			groups[norm] = g
			order = append(order, norm)
		}
		g.count++
	}
	var best *group
	for _, norm := range order {
		g := groups[norm]
		if best == nil || g.count > best.count || (g.count == best.count && g.firstIdx < best.firstIdx) {
			best = g
		}
	}
	if best == nil {
		return ""
	}
	return best.rep
}
