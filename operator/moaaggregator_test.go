package operator

import (
	"context"
	"testing"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/model"
)

func TestMoAAggregatorSynthesisCallsGateway(t *testing.T) {
	pub := newFakePublisher()
	mock := &model.MockStreamingChatModel{Responses: []model.ChatOut{{Text: "combined answer"}}}
	gw := model.NewGateway(mock)
	v := &graph.Vertex{ID: "agg", Kind: graph.KindMoAAggregator, Config: map[string]any{
		"model":       "m1",
		"strategy":    "synthesis",
		"temperature": 0.0,
	}}

	result, err := MoAAggregator{Gateway: gw}.Execute(context.Background(), v, `{"m1":"a","m2":"b"}`, pub, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != "combined answer" {
		t.Errorf("result = %q, want %q", result, "combined answer")
	}
	if mock.Calls != 1 {
		t.Errorf("gateway Calls = %d, want 1", mock.Calls)
	}
}

func TestMoAAggregatorCritiqueNormalizesMarkdown(t *testing.T) {
	pub := newFakePublisher()
	mock := &model.MockStreamingChatModel{Responses: []model.ChatOut{{Text: "# Verdict\n\n**m1** is best."}}}
	gw := model.NewGateway(mock)
	v := &graph.Vertex{ID: "agg", Kind: graph.KindMoAAggregator, Config: map[string]any{
		"model":    "m1",
		"strategy": "critique",
	}}

	result, err := MoAAggregator{Gateway: gw}.Execute(context.Background(), v, `{"m1":"a","m2":"b"}`, pub, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got, want := result, "Verdict m1 is best."; got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
}

func TestMoAAggregatorRejectsUnknownStrategy(t *testing.T) {
	pub := newFakePublisher()
	gw := model.NewGateway(&model.MockStreamingChatModel{})
	v := &graph.Vertex{ID: "agg", Kind: graph.KindMoAAggregator, Config: map[string]any{
		"model":    "m1",
		"strategy": "vote",
	}}

	_, err := MoAAggregator{Gateway: gw}.Execute(context.Background(), v, "{}", pub, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown strategy")
	}
}
