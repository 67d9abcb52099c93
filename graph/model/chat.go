// Package model adapts large-language-model providers behind one shape: a
// non-streaming ChatModel for the direct provider adapters, and the
// StreamingChatModel the C2 gateway requires for llm/self-consistency/
// moa/debate/voting vertices to forward tokens to the event bus as they
// arrive.
package model

import "context"

// ChatModel is the non-streaming shape implemented by the direct
// openai/anthropic/google adapters. The gateway wraps a StreamingChatModel;
// these adapters exist for callers that want one provider without the
// gateway's retry/fallback/accounting layer.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// TokenSink receives streamed tokens as a StreamingChatModel produces them.
// Append must not block on I/O (§9): a sink that needs to do blocking work
// should buffer internally.
type TokenSink func(token string)

// StreamingChatModel is what graph/model.Gateway wraps (§4.2). Stream
// invokes sink once per token as it is produced and returns the fully
// assembled ChatOut once the provider signals completion. modelID is the
// spec §4.2 complete() operation's first parameter — a StreamingChatModel
// backed by a hosted gateway routes on it per call; a StreamingChatModel
// bound to one direct provider connection (graph/model/{openai,anthropic,
// google}) may ignore it in favor of its own configured model.
type StreamingChatModel interface {
	Stream(ctx context.Context, modelID string, messages []Message, temperature float64, sink TokenSink) (ChatOut, error)
}

// Message is one turn of a conversation sent to a provider.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool a provider may call, JSON-Schema style.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ChatOut is a completed model response: assembled text, usage accounting,
// and any tool calls requested.
type ChatOut struct {
	Text         string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
	// TokensEstimated is true when the provider didn't report usage and the
	// gateway fell back to the 4-characters-per-token heuristic (§4.2).
	TokensEstimated bool
}

// ToolCall is one invocation a provider's response asked the caller to make.
type ToolCall struct {
	Name  string
	Input map[string]interface{}
}
