package operator

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/emit"
	"github.com/dshills/flowgraph-engine/graph/model"
)

// SelfConsistency implements the `self-consistency` vertex (§4.5.9): fans
// out N parallel completions at staggered temperatures and votes on a
// single answer.
type SelfConsistency struct {
	Gateway *model.Gateway
}

type scSample struct {
	text  string
	usage emit.Usage
}

func (o SelfConsistency) Execute(ctx context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, cancelDone <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	modelID, err := requireString(v, "model")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	samples, err := configInt(v, "samples", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	if samples < 2 {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "samples must be >= 2", nil)
	}
	voting, err := requireString(v, "voting")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	if voting != "majority" && voting != "longest" && voting != "first" {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "voting: unknown "+voting, nil)
	}
	temperature, err := configFloat(v, "temperature", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	if temperature < 0 {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "temperature must be >= 0", nil)
	}

	results := make([]scSample, samples)
	order := make([]int, 0, samples)
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	for k := 0; k < samples; k++ {
		k := k
		eg.Go(func() error {
			temp := clampTemperature(temperature + float64(k)*0.1)
			messages := buildMessages("", inbound)
			out, usage, err := rawComplete(egCtx, o.Gateway, modelID, messages, temp, v.ID, pub, cancelDone)
			if err != nil {
				return err
			}
			mu.Lock()
			results[k] = scSample{text: out.Text, usage: usage}
			order = append(order, k)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", publishAggregateFailure(ctx, v.ID, pub, err)
	}

	for _, k := range order {
		pub.NodeUsage(v.ID, results[k].usage)
	}

	var resultText string
	switch voting {
	case "majority":
		resultText = majorityVote(results, order)
	case "longest":
		resultText = longestAnswer(results)
	case "first":
		resultText = results[order[0]].text
	}

	pub.NodeFinish(v.ID, resultText)
	return resultText, nil
}

// clampTemperature bounds a staggered sampling temperature to [0,2] (§4.5.9).
func clampTemperature(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 2 {
		return 2
	}
	return t
}

// majorityVote groups normalized answers into equivalence classes and
// returns the representative of the largest class, breaking ties by
// earliest completion (order is completion order, not sample index order).
func majorityVote(results []scSample, order []int) string {
	type group struct {
		rep      string
		count    int
		firstPos int
	}
	groups := make(map[string]*group)
	var seenOrder []string
	for pos, k := range order {
		norm := normalizeAnswer(results[k].text)
		g, ok := groups[norm]
		if !ok {
			g = &group{rep: results[k].text, firstPos: pos}
			groups[norm] = g
			seenOrder = append(seenOrder, norm)
		}
		g.count++
	}
	var best *group
	for _, norm := range seenOrder {
		g := groups[norm]
		if best == nil || g.count > best.count || (g.count == best.count && g.firstPos < best.firstPos) {
			best = g
		}
	}
	if best == nil {
		return ""
	}
	return best.rep
}

// longestAnswer returns the sample with the greatest character count,
// ties broken by sample index ascending.
func longestAnswer(results []scSample) string {
	best := ""
	bestLen := -1
	for _, r := range results {
		if len([]rune(r.text)) > bestLen {
			best = r.text
			bestLen = len([]rune(r.text))
		}
	}
	return best
}
