// Package hosted implements the default model.StreamingChatModel adapter
// spec §6 calls for: "the core ships a default adapter to a hosted gateway
// (implementation-defined)". The adapter targets an OpenAI-compatible
// hosted gateway (model id passed through verbatim, one endpoint serving
// every provider) since that shape is what the discovery endpoint in §6
// already describes (a flat model catalogue keyed by id, with an optional
// pricing block) and is the same shape graph/model/openai adapts for a
// direct-to-OpenAI connection.
package hosted

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dshills/flowgraph-engine/graph/model"
)

// ChatModel streams completions through any OpenAI-compatible hosted
// gateway (OpenRouter, a self-hosted LiteLLM proxy, etc): base URL and
// model id are both caller-supplied, so one ChatModel instance serves
// every llm/self-consistency/moa/debate/voting vertex in a session
// regardless of which model id a particular vertex's config names.
type ChatModel struct {
	apiKey  string
	baseURL string
}

// NewChatModel returns a ChatModel against baseURL (e.g.
// "https://openrouter.ai/api/v1"), authenticating with apiKey.
func NewChatModel(apiKey, baseURL string) *ChatModel {
	return &ChatModel{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/")}
}

// Stream implements model.StreamingChatModel, routing modelID straight
// through to the hosted gateway per call — exactly the §4.2 complete()
// shape, since this adapter's whole reason to exist is serving every
// vertex's distinct model id from one shared connection.
func (m *ChatModel) Stream(ctx context.Context, modelID string, messages []model.Message, temperature float64, sink model.TokenSink) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}
	if modelID == "" {
		modelID = "openai/gpt-4o-mini"
	}

	client := openaisdk.NewClient(
		option.WithAPIKey(m.apiKey),
		option.WithBaseURL(m.baseURL+"/"),
	)
	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(modelID),
		Messages:    convertMessages(messages),
		Temperature: openaisdk.Float(temperature),
	}

	stream := client.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	var out model.ChatOut
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		out.Text += delta
		sink(delta)
		if chunk.Usage.TotalTokens > 0 {
			out.InputTokens = int(chunk.Usage.PromptTokens)
			out.OutputTokens = int(chunk.Usage.CompletionTokens)
		}
	}
	if err := stream.Err(); err != nil {
		return model.ChatOut{}, fmt.Errorf("hosted gateway stream: %w", err)
	}
	return out, nil
}

func convertMessages(messages []model.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out[i] = openaisdk.SystemMessage(msg.Content)
		case model.RoleAssistant:
			out[i] = openaisdk.AssistantMessage(msg.Content)
		default:
			out[i] = openaisdk.UserMessage(msg.Content)
		}
	}
	return out
}

// ModelInfo is one entry of the discovery catalogue (spec §6): "the core
// does not interpret pricing", so Pricing is carried through opaquely.
type ModelInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Pricing *struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing,omitempty"`
}

// Catalogue fetches GET {baseURL}/models?api_key=... and returns its
// "data" array verbatim, for cmd/flowgraph-server's own /models handler to
// proxy (spec §6 discovery endpoint).
func (m *ChatModel) Catalogue(ctx context.Context) ([]ModelInfo, error) {
	reqURL := m.baseURL + "/models?api_key=" + url.QueryEscape(m.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("hosted gateway: build catalogue request: %w", err)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hosted gateway: catalogue request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hosted gateway: read catalogue response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("hosted gateway: catalogue returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Data []ModelInfo `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("hosted gateway: decode catalogue response: %w", err)
	}
	return parsed.Data, nil
}
