package operator

import (
	"context"
	"testing"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/model"
)

func TestReducerConcatenateJoinsChunks(t *testing.T) {
	pub := newFakePublisher()
	gw := model.NewGateway(&model.MockStreamingChatModel{})
	v := &graph.Vertex{ID: "r", Kind: graph.KindReducer, Config: map[string]any{"strategy": "concatenate"}}

	inbound := encodeChunks([]string{"one", "two", "three"})
	result, err := Reducer{Gateway: gw}.Execute(context.Background(), v, inbound, pub, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := "one\n\ntwo\n\nthree"
	if result != want {
		t.Errorf("result = %q, want %q", result, want)
	}
}

func TestReducerConcatenateTreatsPlainTextAsSingleChunk(t *testing.T) {
	pub := newFakePublisher()
	gw := model.NewGateway(&model.MockStreamingChatModel{})
	v := &graph.Vertex{ID: "r", Kind: graph.KindReducer, Config: map[string]any{"strategy": "concatenate"}}

	result, err := Reducer{Gateway: gw}.Execute(context.Background(), v, "plain text", pub, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != "plain text" {
		t.Errorf("result = %q, want %q", result, "plain text")
	}
}

func TestReducerHierarchicalReducesToOneSummary(t *testing.T) {
	pub := newFakePublisher()
	mock := &model.MockStreamingChatModel{Responses: []model.ChatOut{{Text: "summary"}}}
	gw := model.NewGateway(mock)
	v := &graph.Vertex{ID: "r", Kind: graph.KindReducer, Config: map[string]any{
		"strategy": "hierarchical",
		"model":    "m1",
		"prompt":   "summarize",
	}}

	inbound := encodeChunks([]string{"chunk one", "chunk two", "chunk three"})
	result, err := Reducer{Gateway: gw}.Execute(context.Background(), v, inbound, pub, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != "summary" {
		t.Errorf("result = %q, want %q", result, "summary")
	}
	if mock.Calls == 0 {
		t.Error("expected the gateway to be called at least once")
	}
}
