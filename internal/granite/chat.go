// Package granite talks to chat-completion endpoints serving Granite models:
// an OpenAI compatible remote endpoint and a local Ollama server.
package granite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"rhdh-mcp/internal/upstream"
)

const (
	ChatPath      = "/v1/chat/completions"
	SystemPrompt  = "You are a helpful assistant."
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body posted to the completions endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   *bool     `json:"stream,omitempty"`
}

// Completion is the outcome of one chat call.
type Completion struct {
	Text     string
	Raw      string
	Duration time.Duration
}

// BuildChatRequest starts from the system prompt and appends the user messages
// of msgs in order. Other roles are not forwarded.
func BuildChatRequest(model string, msgs []Message) ChatRequest {
	req := ChatRequest{
		Model:    model,
		Messages: []Message{{Role: RoleSystem, Content: SystemPrompt}},
	}
	for _, m := range msgs {
		if m.Role == RoleUser {
			req.Messages = append(req.Messages, m)
		}
	}
	return req
}

// Client posts chat requests through the shared upstream client.
type Client struct {
	HTTP *upstream.Client
}

// New returns a Client. A nil httpClient gets a default upstream client.
func New(httpClient *upstream.Client) *Client {
	if httpClient == nil {
		httpClient = upstream.New(upstream.Options{})
	}
	return &Client{HTTP: httpClient}
}

// Chat sends msgs to the completions endpoint under baseURL.
func (c *Client) Chat(ctx context.Context, baseURL, apiKey, model string, msgs []Message) (Completion, error) {
	body, err := json.Marshal(BuildChatRequest(model, msgs))
	if err != nil {
		return Completion{}, fmt.Errorf("marshal chat request: %w", err)
	}

	h := upstream.BearerHeader(apiKey)
	h.Set("Content-Type", "application/json")

	start := time.Now()
	raw, err := c.HTTP.Do(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+ChatPath, h, bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("chat: %w", err)
	}
	return Completion{
		Text:     answer(raw, "choices.0.message.content"),
		Raw:      raw,
		Duration: time.Since(start),
	}, nil
}

// answer pulls the generated text out of raw, or returns raw when the path is absent.
func answer(raw, path string) string {
	if !gjson.Valid(raw) {
		return raw
	}
	if res := gjson.Get(raw, path); res.Exists() {
		return res.String()
	}
	return raw
}
