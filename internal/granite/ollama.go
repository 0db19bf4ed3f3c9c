package granite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rhdh-mcp/internal/upstream"
)

// Ollama is a client for a local Ollama server's chat API.
type Ollama struct {
	Host  string
	Model string
	HTTP  *upstream.Client
}

// NewOllama returns an Ollama client. A nil httpClient gets a default upstream client.
func NewOllama(host, model string, httpClient *upstream.Client) *Ollama {
	if httpClient == nil {
		httpClient = upstream.New(upstream.Options{})
	}
	return &Ollama{Host: strings.TrimRight(host, "/"), Model: model, HTTP: httpClient}
}

// Ask sends a single user message and waits for the whole answer.
func (o *Ollama) Ask(ctx context.Context, prompt string) (Completion, error) {
	stream := false
	body, err := json.Marshal(ChatRequest{
		Model:    o.Model,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
		Stream:   &stream,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("marshal ollama request: %w", err)
	}

	h := http.Header{}
	h.Set("Content-Type", "application/json")

	start := time.Now()
	raw, err := o.HTTP.Do(ctx, http.MethodPost, o.Host+"/api/chat", h, bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("ollama chat: %w", err)
	}
	return Completion{
		Text:     answer(raw, "message.content"),
		Raw:      raw,
		Duration: time.Since(start),
	}, nil
}
