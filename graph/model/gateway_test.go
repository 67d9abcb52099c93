package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/flowgraph-engine/graph"
)

type fakeStreamingModel struct {
	calls     int
	failTimes int
	text      string
	tokens    []string
	usage     ChatOut
}

func (f *fakeStreamingModel) Stream(_ context.Context, _ string, _ []Message, _ float64, sink TokenSink) (ChatOut, error) {
	f.calls++
	if f.calls <= f.failTimes {
		return ChatOut{}, errors.New("503 service unavailable")
	}
	for _, tok := range f.tokens {
		sink(tok)
	}
	if f.usage.InputTokens != 0 || f.usage.OutputTokens != 0 {
		return f.usage, nil
	}
	return ChatOut{Text: f.text}, nil
}

func fastRetryPolicy() graph.RetryPolicy {
	return graph.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Retryable: IsTransient}
}

func TestGatewayRetriesTransientFailures(t *testing.T) {
	primary := &fakeStreamingModel{failTimes: 2, text: "hi"}
	gw := NewGateway(primary, WithRetryPolicy(fastRetryPolicy()))

	var streamed string
	out, err := gw.Complete(context.Background(), "m1", []Message{{Role: RoleUser, Content: "hello"}}, 0, func(tok string) { streamed += tok }, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out.Text != "hi" {
		t.Errorf("Text = %q, want hi", out.Text)
	}
	if primary.calls != 3 {
		t.Errorf("calls = %d, want 3", primary.calls)
	}
}

func TestGatewayFallsBackAfterThreeConsecutiveFailures(t *testing.T) {
	primary := &fakeStreamingModel{failTimes: 999}
	fallback := &fakeStreamingModel{text: "fallback"}
	gw := NewGateway(primary, WithFallback(fallback), WithRetryPolicy(graph.RetryPolicy{MaxAttempts: 1, Retryable: IsTransient}))

	for i := 0; i < 3; i++ {
		_, _ = gw.Complete(context.Background(), "m1", nil, 0, func(string) {}, nil)
	}

	out, err := gw.Complete(context.Background(), "m1", nil, 0, func(string) {}, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out.Text != "fallback" {
		t.Errorf("Text = %q, want fallback (expected fallback after 3 consecutive primary failures)", out.Text)
	}
}

func TestGatewayEstimatesTokensWhenUsageMissing(t *testing.T) {
	primary := &fakeStreamingModel{text: "a response twelve chars"}
	gw := NewGateway(primary, WithRetryPolicy(fastRetryPolicy()))

	out, err := gw.Complete(context.Background(), "m1", []Message{{Role: RoleUser, Content: "some input text"}}, 0, func(string) {}, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !out.TokensEstimated {
		t.Error("expected TokensEstimated = true when provider omits usage")
	}
	if out.OutputTokens == 0 {
		t.Error("expected non-zero estimated output tokens")
	}
}

func TestGatewayStreamsTokensToSink(t *testing.T) {
	primary := &fakeStreamingModel{tokens: []string{"a", "b", "c"}}
	gw := NewGateway(primary, WithRetryPolicy(fastRetryPolicy()))

	var got string
	_, err := gw.Complete(context.Background(), "m1", nil, 0, func(tok string) { got += tok }, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "abc" {
		t.Errorf("streamed tokens = %q, want abc", got)
	}
}

func TestEstimateTokensRoundsUp(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"abcdefgh", 2},
		{"abcdefghi", 3},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.text); got != c.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestGatewayConsecutiveFailuresSurviveConcurrentCalls(t *testing.T) {
	primary := &fakeStreamingModel{failTimes: 999}
	fallback := &fakeStreamingModel{text: "fallback"}
	gw := NewGateway(primary, WithFallback(fallback), WithRetryPolicy(graph.RetryPolicy{MaxAttempts: 1, Retryable: IsTransient}))

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			_, _ = gw.Complete(context.Background(), "m1", nil, 0, func(string) {}, nil)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	out, err := gw.Complete(context.Background(), "m1", nil, 0, func(string) {}, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out.Text != "fallback" {
		t.Errorf("Text = %q, want fallback after concurrent primary failures raced the counter past 3", out.Text)
	}
}
