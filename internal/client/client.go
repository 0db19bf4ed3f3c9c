// Package client opens a session with a tool server, either by spawning it as
// a subprocess speaking stdio or by dialing its SSE endpoint.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"rhdh-mcp/internal/toolerr"
)

// Name and Version identify the client during initialization.
const (
	Name    = "rhdh-mcp-client"
	Version = "0.1.0"
)

// Options selects the transport. SSEURL wins over Command when both are set.
type Options struct {
	Command []string // server executable and arguments
	Env     []string // extra KEY=VALUE pairs for the subprocess
	SSEURL  string
	Token   string        // bearer token for the SSE endpoint
	Timeout time.Duration // per request bound, zero means none
}

// Session is an initialized connection to one tool server.
type Session struct {
	cs      *mcp.ClientSession
	logger  zerolog.Logger
	timeout time.Duration
}

// Connect starts or dials the server and completes the initialize handshake.
func Connect(ctx context.Context, opts Options, logger zerolog.Logger) (*Session, error) {
	t, err := transport(opts)
	if err != nil {
		return nil, err
	}
	s, err := ConnectTransport(ctx, t, logger)
	if err != nil {
		return nil, err
	}
	s.timeout = opts.Timeout
	return s, nil
}

// ConnectTransport completes the handshake over an existing transport.
func ConnectTransport(ctx context.Context, t mcp.Transport, logger zerolog.Logger) (*Session, error) {
	c := mcp.NewClient(&mcp.Implementation{Name: Name, Version: Version}, nil)
	cs, err := c.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize session: %w", err)
	}
	s := &Session{cs: cs, logger: logger.With().Str("component", "client").Logger()}
	s.logger.Debug().Msg("session initialized")
	return s, nil
}

func transport(opts Options) (mcp.Transport, error) {
	if opts.SSEURL != "" {
		// No client timeout: the event stream stays open for the whole session.
		hc := &http.Client{}
		if opts.Token != "" {
			hc.Transport = &bearerTransport{token: opts.Token, next: http.DefaultTransport}
		}
		return &mcp.SSEClientTransport{Endpoint: opts.SSEURL, HTTPClient: hc}, nil
	}
	if len(opts.Command) == 0 {
		return nil, errors.New("no server command or sse url configured")
	}
	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.Stderr = os.Stderr
	return &mcp.CommandTransport{Command: cmd}, nil
}

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(r)
}

func (s *Session) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Close ends the session and, for stdio, the server process.
func (s *Session) Close() error {
	return s.cs.Close()
}

// ListTools asks the server for its tools. Results are never cached.
func (s *Session) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	res, err := s.cs.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return res.Tools, nil
}

// ListPrompts asks the server for its prompts. Results are never cached.
func (s *Session) ListPrompts(ctx context.Context) ([]*mcp.Prompt, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	res, err := s.cs.ListPrompts(ctx, &mcp.ListPromptsParams{})
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return res.Prompts, nil
}

// GetPrompt expands a prompt on the server. An unknown name matches
// toolerr.ErrUnknownPrompt.
func (s *Session) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	res, err := s.cs.GetPrompt(ctx, &mcp.GetPromptParams{Name: name, Arguments: args})
	if err != nil {
		if isUnknown(err, toolerr.ErrUnknownPrompt) {
			return nil, toolerr.UnknownPrompt(name)
		}
		return nil, fmt.Errorf("get prompt %s: %w", name, err)
	}
	return res, nil
}

// CallTool invokes a tool. A result flagged as an error is returned as a
// *toolerr.ToolError carrying the server's message; a name the server does not
// know matches toolerr.ErrUnknownTool.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	start := time.Now()
	ctx, cancel := s.bound(ctx)
	defer cancel()
	res, err := s.cs.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		if isUnknown(err, toolerr.ErrUnknownTool) {
			return nil, toolerr.UnknownTool(name)
		}
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	s.logger.Debug().Str("tool", name).Dur("duration", time.Since(start)).Bool("is_error", res.IsError).Msg("tool called")
	if res.IsError {
		return res, &toolerr.ToolError{Tool: name, Message: Text(res)}
	}
	return res, nil
}

// isUnknown reports whether err is the server rejecting a tool or prompt name
// it does not have. The go-sdk server answers those with a JSON-RPC wire error
// whose message reads "unknown tool ..." or "unknown prompt ..."; the match
// depends on that wording, which equals the sentinel's text. The wire error's
// message is checked when the SDK exposes one, the flattened text otherwise.
func isUnknown(err error, sentinel error) bool {
	var wire *jsonrpc.Error
	if errors.As(err, &wire) {
		return strings.Contains(wire.Message, sentinel.Error())
	}
	return strings.Contains(err.Error(), sentinel.Error())
}

// Text concatenates the text items of a result.
func Text(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range res.Content {
		if t, ok := c.(*mcp.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// PromptArgument converts an expanded prompt into the object form accepted by
// the chat tool's prompt argument.
func PromptArgument(p *mcp.GetPromptResult) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode prompt: %w", err)
	}
	return out, nil
}
