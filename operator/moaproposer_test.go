package operator

import (
	"context"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/flowgraph-engine/graph"
	"github.com/dshills/flowgraph-engine/graph/model"
)

func TestMoAProposerPreservesConfiguredOrder(t *testing.T) {
	pub := newFakePublisher()
	mock := &model.MockStreamingChatModel{Responses: []model.ChatOut{{Text: "r1"}, {Text: "r2"}, {Text: "r3"}}}
	gw := model.NewGateway(mock)
	v := &graph.Vertex{ID: "p", Kind: graph.KindMoAProposer, Config: map[string]any{
		"models":      []any{"m1", "m2", "m3"},
		"temperature": 0.0,
	}}

	result, err := MoAProposer{Gateway: gw}.Execute(context.Background(), v, "topic", pub, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !gjson.Valid(result) {
		t.Fatalf("result is not valid JSON: %q", result)
	}
	var keys []string
	gjson.Parse(result).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	want := []string{"m1", "m2", "m3"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestMoAProposerDegradesAFailedProposer(t *testing.T) {
	pub := newFakePublisher()
	mock := &model.MockStreamingChatModel{Err: errFake}
	gw := model.NewGateway(mock)
	v := &graph.Vertex{ID: "p", Kind: graph.KindMoAProposer, Config: map[string]any{
		"models":      []any{"m1"},
		"temperature": 0.0,
	}}

	result, err := MoAProposer{Gateway: gw}.Execute(context.Background(), v, "topic", pub, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v, want proposer vertex to proceed", err)
	}
	got := gjson.Get(result, "m1").String()
	if got != moaUnavailablePlaceholder {
		t.Errorf("m1 entry = %q, want %q", got, moaUnavailablePlaceholder)
	}
}
