package model

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dshills/flowgraph-engine/graph"
)

// Gateway implements C2: it wraps a StreamingChatModel with spec §4.2's
// retry, fallback and usage-accounting policy. Every llm, self-consistency,
// moa-proposer, moa-aggregator, debate and voting vertex calls through a
// shared Gateway rather than a raw StreamingChatModel, issuing concurrent
// Complete calls against it (§4.6) — so Gateway must never be copied by
// value; always construct and share it as *Gateway.
type Gateway struct {
	primary  StreamingChatModel
	fallback StreamingChatModel

	retryPolicy graph.RetryPolicy
	callTimeout time.Duration

	// consecutiveFailures counts unbroken primary failures since the last
	// success; reaching 3 switches subsequent calls to fallback (§4.2).
	// Concurrent operators (self-consistency, moa-proposer, debate) call
	// Complete against the same shared Gateway at once, so this is an
	// atomic counter rather than a plain int.
	consecutiveFailures atomic.Int64
}

// GatewayOption configures a Gateway at construction, mirroring the
// engine's functional-options idiom.
type GatewayOption func(*Gateway)

// WithFallback sets the model used once three consecutive primary calls
// have failed.
func WithFallback(fallback StreamingChatModel) GatewayOption {
	return func(g *Gateway) { g.fallback = fallback }
}

// WithRetryPolicy overrides graph.DefaultGatewayRetryPolicy.
func WithRetryPolicy(rp graph.RetryPolicy) GatewayOption {
	return func(g *Gateway) { g.retryPolicy = rp }
}

// WithCallTimeout overrides the 120-second per-attempt bound from §4.4.
func WithCallTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.callTimeout = d }
}

// NewGateway builds a Gateway around primary, retrying transient failures
// per graph.DefaultGatewayRetryPolicy unless overridden.
func NewGateway(primary StreamingChatModel, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		primary:     primary,
		callTimeout: 120 * time.Second,
	}
	g.retryPolicy = graph.DefaultGatewayRetryPolicy(IsTransient)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete streams one completion for modelID, retrying transient failures
// and switching to the fallback model after three consecutive primary
// failures. sink receives each token as the underlying model produces it;
// cancelDone, when closed, preempts any retry in progress (§9).
func (g *Gateway) Complete(ctx context.Context, modelID string, messages []Message, temperature float64, sink TokenSink, cancelDone <-chan struct{}) (ChatOut, error) {
	model := g.primary
	if g.consecutiveFailures.Load() >= 3 && g.fallback != nil {
		model = g.fallback
	}

	var out ChatOut
	err := graph.Retry(cancelDone, g.retryPolicy, nil, func(int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		defer cancel()

		result, streamErr := model.Stream(attemptCtx, modelID, messages, temperature, sink)
		if streamErr != nil {
			return streamErr
		}
		out = result
		return nil
	})

	if err != nil {
		if model == g.primary {
			g.consecutiveFailures.Add(1)
		}
		return ChatOut{}, err
	}

	if model == g.primary {
		g.consecutiveFailures.Store(0)
	}
	if out.OutputTokens == 0 && out.InputTokens == 0 {
		out.InputTokens = EstimateTokens(joinMessages(messages))
		out.OutputTokens = EstimateTokens(out.Text)
		out.TokensEstimated = true
	}
	return out, nil
}

// EstimateTokens applies the 4-characters-per-token heuristic (§4.2) used
// when a provider response carries no usage block: ⌈len(text)/4⌉.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

func joinMessages(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
	}
	return b.String()
}

// IsTransient classifies a gateway error as retryable: network failures,
// request timeouts, and 429/5xx-shaped provider errors. Anything else
// (bad request, auth failure) is treated as terminal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"timeout", "deadline exceeded", "connection reset", "EOF", "429", "500", "502", "503", "504"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
