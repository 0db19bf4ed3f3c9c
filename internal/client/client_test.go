package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhdh-mcp/internal/server"
	"rhdh-mcp/internal/toolerr"
	"rhdh-mcp/internal/upstream"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func echoUpstream(body string) http.RoundTripper {
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	})
}

func newServer(t *testing.T, rt http.RoundTripper) *server.Server {
	t.Helper()
	return newServerWithConfig(t, server.Config{}, rt)
}

func newServerWithConfig(t *testing.T, cfg server.Config, rt http.RoundTripper) *server.Server {
	t.Helper()
	deps := server.NewDeps(upstream.New(upstream.Options{Transport: rt}), "granite3-dense:8b")
	defs, prompts, err := server.Build([]string{server.ToolsetFetch, server.ToolsetCatalog, server.ToolsetModel}, deps)
	require.NoError(t, err)
	reg, err := server.NewRegistry(zerolog.Nop(), defs...)
	require.NoError(t, err)
	pr, err := server.NewPrompts(zerolog.Nop(), prompts...)
	require.NoError(t, err)
	s, err := server.New(cfg, reg, pr, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func connect(t *testing.T, s *server.Server) *Session {
	t.Helper()
	ctx := context.Background()
	ct, st := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	sess, err := ConnectTransport(ctx, ct, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestSessionListsAndCalls(t *testing.T) {
	sess := connect(t, newServer(t, echoUpstream("<html>Example Domain</html>")))
	ctx := context.Background()

	tools, err := sess.ListTools(ctx)
	require.NoError(t, err)
	assert.Len(t, tools, 6)

	res, err := sess.CallTool(ctx, "fetch", map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "<html>Example Domain</html>", Text(res))
}

func TestCallToolErrorResult(t *testing.T) {
	sess := connect(t, newServer(t, echoUpstream("")))

	_, err := sess.CallTool(context.Background(), "get_tags", map[string]any{"url": "https://hub.example.com"})
	var te *toolerr.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "get_tags", te.Tool)
	assert.Contains(t, te.Message, "apiKey")

	_, err = sess.CallTool(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, toolerr.ErrUnknownTool)
}

func TestGetPromptFeedsChat(t *testing.T) {
	var sent string
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(r.Body)
		sent = string(b)
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(`{"choices":[{"message":{"content":"Red."}}]}`)),
			Request:    r,
		}, nil
	})
	sess := connect(t, newServer(t, rt))
	ctx := context.Background()

	prompts, err := sess.ListPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 1)

	p, err := sess.GetPrompt(ctx, server.ChatPromptName, map[string]string{
		"context": "The sky is red at sunset.",
		"topic":   "It's sunset time. What color is the sky?",
	})
	require.NoError(t, err)
	require.Len(t, p.Messages, 2)

	arg, err := PromptArgument(p)
	require.NoError(t, err)
	res, err := sess.CallTool(ctx, "chat", map[string]any{
		"url":    "https://model.example.com",
		"apiKey": "k",
		"model":  "granite3-dense:8b",
		"prompt": arg,
	})
	require.NoError(t, err)
	assert.Equal(t, "Red.", Text(res))
	assert.Contains(t, sent, "The sky is red at sunset.")
	assert.Contains(t, sent, "It's sunset time. What color is the sky?")
}

func TestGetPromptUnknown(t *testing.T) {
	sess := connect(t, newServer(t, echoUpstream("")))
	_, err := sess.GetPrompt(context.Background(), "example-prompt", map[string]string{"arg1": "value"})
	assert.ErrorIs(t, err, toolerr.ErrUnknownPrompt)
}

func TestConnectOverSSEWithToken(t *testing.T) {
	s := newServerWithConfig(t, server.Config{Token: "x"}, echoUpstream("ok"))
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := Connect(ctx, Options{SSEURL: ts.URL + "/sse", Token: "x", Timeout: 5 * time.Second}, zerolog.Nop())
	require.NoError(t, err)
	defer sess.Close()

	res, err := sess.CallTool(ctx, "fetch", map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ok", Text(res))

	_, err = Connect(ctx, Options{SSEURL: ts.URL + "/sse"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestConnectWithoutTransport(t *testing.T) {
	_, err := Connect(context.Background(), Options{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestBearerTransport(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer ts.Close()

	hc := &http.Client{Transport: &bearerTransport{token: "secret", next: http.DefaultTransport}}
	resp, err := hc.Get(ts.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "Bearer secret", got)
}

func TestIsUnknown(t *testing.T) {
	wire := &jsonrpc.Error{Code: -32602, Message: `unknown tool "nope"`}
	assert.True(t, isUnknown(fmt.Errorf("calling %q: %w", "tools/call", wire), toolerr.ErrUnknownTool))
	assert.False(t, isUnknown(wire, toolerr.ErrUnknownPrompt))
	assert.False(t, isUnknown(&jsonrpc.Error{Code: -32603, Message: "boom"}, toolerr.ErrUnknownTool))

	assert.True(t, isUnknown(errors.New(`unknown prompt "example-prompt"`), toolerr.ErrUnknownPrompt))
	assert.False(t, isUnknown(errors.New("connection reset"), toolerr.ErrUnknownPrompt))
}
