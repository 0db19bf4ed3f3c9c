package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectInMemory(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := s.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestMCPListAndCall(t *testing.T) {
	rt := &stubTransport{body: "hello"}
	cs := connectInMemory(t, newTestServer(t, Config{}, rt))
	ctx := context.Background()

	tools, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"fetch", "get_tags", "get_apis", "get_inference_servers", "get_from_rhdh_catalog", "chat"}, names)
	assert.True(t, slices.IsSorted(names), "tools/list is ordered by name: %v", names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "fetch", Arguments: map[string]any{"url": "https://example.com"}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "hello", text.Text)
}

func TestMCPArgumentErrorIsToolError(t *testing.T) {
	rt := &stubTransport{body: "never"}
	cs := connectInMemory(t, newTestServer(t, Config{}, rt))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "get_apis", Arguments: map[string]any{"url": ""}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	text := res.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, text, "url")
	assert.Zero(t, rt.calls.Load())
}

func TestMCPPrompts(t *testing.T) {
	cs := connectInMemory(t, newTestServer(t, Config{}, &stubTransport{}))
	ctx := context.Background()

	prompts, err := cs.ListPrompts(ctx, &mcp.ListPromptsParams{})
	require.NoError(t, err)
	require.Len(t, prompts.Prompts, 1)
	assert.Equal(t, ChatPromptName, prompts.Prompts[0].Name)

	res, err := cs.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      ChatPromptName,
		Arguments: map[string]string{"context": "The sky is red at sunset.", "topic": "It's sunset time. What color is the sky?"},
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, mcp.Role("user"), res.Messages[1].Role)
	assert.Equal(t, "It's sunset time. What color is the sky?", res.Messages[1].Content.(*mcp.TextContent).Text)

	_, err = cs.GetPrompt(ctx, &mcp.GetPromptParams{Name: "example-prompt"})
	assert.Error(t, err)
}

func TestSSETransport(t *testing.T) {
	s := newTestServer(t, Config{}, &stubTransport{body: "over sse"})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "sse-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, &mcp.SSEClientTransport{Endpoint: ts.URL + "/sse"}, nil)
	require.NoError(t, err)
	defer cs.Close()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "fetch", Arguments: map[string]any{"url": "https://example.com"}})
	require.NoError(t, err)
	assert.Equal(t, "over sse", res.Content[0].(*mcp.TextContent).Text)
}

func TestSSEStreamEndsWhenServeContextIsCancelled(t *testing.T) {
	s := newTestServer(t, Config{}, &stubTransport{})
	ctx, cancel := context.WithCancel(context.Background())

	hs := s.httpServer(ctx)
	ts := httptest.NewUnstartedServer(hs.Handler)
	ts.Config.BaseContext = hs.BaseContext
	ts.Start()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/sse")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("sse stream still open after the serve context was cancelled")
	}
}
