package model

import (
	"context"
	"sync"
)

// MockStreamingChatModel is the streaming counterpart to MockChatModel, used
// to exercise Gateway and the operator library's llm/self-consistency/moa/
// debate/voting vertices without a real provider. Text is split on spaces
// into one sink call per word to approximate token streaming.
type MockStreamingChatModel struct {
	Responses []ChatOut
	Err       error

	mu        sync.Mutex
	callIndex int
	Calls     int
}

// Stream implements StreamingChatModel.
func (m *MockStreamingChatModel) Stream(ctx context.Context, _ string, _ []Message, _ float64, sink TokenSink) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	m.Calls++
	if m.Err != nil {
		m.mu.Unlock()
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		m.mu.Unlock()
		return ChatOut{}, nil
	}
	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	out := m.Responses[idx]
	m.mu.Unlock()

	word := ""
	for _, r := range out.Text {
		if r == ' ' {
			sink(word + " ")
			word = ""
			continue
		}
		word += string(r)
	}
	if word != "" {
		sink(word)
	}
	return out, nil
}
