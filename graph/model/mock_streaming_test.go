package model

import (
	"context"
	"testing"
)

func TestMockStreamingChatModelSplitsOnWords(t *testing.T) {
	m := &MockStreamingChatModel{Responses: []ChatOut{{Text: "hello world"}}}

	var tokens []string
	out, err := m.Stream(context.Background(), "m1", nil, 0, func(tok string) { tokens = append(tokens, tok) })
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if out.Text != "hello world" {
		t.Errorf("Text = %q", out.Text)
	}
	if len(tokens) < 2 {
		t.Fatalf("expected at least 2 tokens, got %d", len(tokens))
	}
}

func TestMockStreamingChatModelRepeatsLastResponse(t *testing.T) {
	m := &MockStreamingChatModel{Responses: []ChatOut{{Text: "a"}, {Text: "b"}}}

	for i, want := range []string{"a", "b", "b"} {
		out, err := m.Stream(context.Background(), "m1", nil, 0, func(string) {})
		if err != nil {
			t.Fatalf("call %d: error = %v", i, err)
		}
		if out.Text != want {
			t.Errorf("call %d: Text = %q, want %q", i, out.Text, want)
		}
	}
}
