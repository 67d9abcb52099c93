package operator

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/model"
)

// debatePositions assigns the deterministic position labels §4.5.12 calls
// for: PRO, CON, NEUTRAL, then numbered positions beyond three debaters
// (the source leaves the >3 mapping implementation-defined).
func debatePositions(n int) []string {
	named := []string{"PRO", "CON", "NEUTRAL"}
	positions := make([]string, n)
	for i := 0; i < n; i++ {
		if i < len(named) {
			positions[i] = named[i]
			continue
		}
		positions[i] = "POSITION_" + strconv.Itoa(i+1)
	}
	return positions
}

// Debate implements the `debate` vertex (§4.5.12): sequential rounds of
// parallel per-position statements, accumulated into one transcript.
type Debate struct {
	Gateway *model.Gateway
}

func (o Debate) Execute(ctx context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, cancelDone <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	modelID, err := requireString(v, "model")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	debaters, err := configInt(v, "debaters", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	if debaters < 2 || debaters > 5 {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "debaters must be in [2,5]", nil)
	}
	rounds, err := configInt(v, "rounds", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	if rounds < 1 || rounds > 5 {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "rounds must be in [1,5]", nil)
	}
	temperature, err := configFloat(v, "temperature", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}

	positions := debatePositions(debaters)
	transcript := ""

	for round := 1; round <= rounds; round++ {
		statements := make([]string, debaters)

		eg, egCtx := errgroup.WithContext(ctx)
		for i, position := range positions {
			i, position := i, position
			eg.Go(func() error {
				header := fmt.Sprintf("\n\n=== Round %d / %s ===\n", round, position)
				pub.TokenStream(v.ID, header)

				system := fmt.Sprintf(
					"You are arguing the %s position in a structured multi-round debate. "+
						"Respond with your statement for this round only.", position)
				user := "Topic:\n" + inbound
				if transcript != "" {
					user += "\n\nTranscript so far:\n" + transcript
				}
				messages := buildMessages(system, user)

				out, usage, err := rawComplete(egCtx, o.Gateway, modelID, messages, temperature, v.ID, pub, cancelDone)
				if err != nil {
					return err
				}
				pub.NodeUsage(v.ID, usage)
				statements[i] = out.Text
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return "", publishAggregateFailure(ctx, v.ID, pub, err)
		}

		for i, position := range positions {
			transcript += fmt.Sprintf("Round %d — %s: %s\n", round, position, statements[i])
		}
	}

	pub.NodeFinish(v.ID, transcript)
	return transcript, nil
}
