package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"rhdh-mcp/internal/toolerr"
)

// newMCPServer exposes the registry and prompts through the MCP SDK.
func newMCPServer(name, version string, tools *Registry, prompts *Prompts) (*mcp.Server, error) {
	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	for _, t := range tools.List() {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %s: %w", t.Name, err)
		}
		srv.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: json.RawMessage(schema),
		}, toolHandler(tools, t.Name))
	}

	for _, p := range prompts.List() {
		args := make([]*mcp.PromptArgument, 0, len(p.Arguments))
		for _, a := range p.Arguments {
			args = append(args, &mcp.PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required})
		}
		srv.AddPrompt(&mcp.Prompt{
			Name:        p.Name,
			Description: p.Description,
			Arguments:   args,
		}, promptHandler(prompts, p.Name))
	}
	return srv, nil
}

// toolHandler reports tool failures as error results so the client sees the
// message, as MCP expects for tool-level errors.
func toolHandler(tools *Registry, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(toolerr.Invalid(name, "arguments", "must be a JSON object")), nil
			}
		}
		res, err := tools.Call(ctx, name, args)
		if err != nil {
			return errorResult(err), nil
		}
		return toMCPResult(res), nil
	}
}

func promptHandler(prompts *Prompts, name string) mcp.PromptHandler {
	return func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		var args map[string]string
		if req.Params != nil {
			args = req.Params.Arguments
		}
		res, err := prompts.Get(name, args)
		if err != nil {
			return nil, err
		}
		out := &mcp.GetPromptResult{Description: res.Description}
		for _, m := range res.Messages {
			out.Messages = append(out.Messages, &mcp.PromptMessage{Role: mcp.Role(m.Role), Content: toMCPContent(m.Content)})
		}
		return out, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

func toMCPResult(res *Result) *mcp.CallToolResult {
	out := &mcp.CallToolResult{Content: make([]mcp.Content, 0, len(res.Content))}
	for _, c := range res.Content {
		out.Content = append(out.Content, toMCPContent(c))
	}
	return out
}

func toMCPContent(c Content) mcp.Content {
	switch c.Type {
	case ContentImage:
		return &mcp.ImageContent{Data: c.Data, MIMEType: c.MIMEType}
	case ContentResource:
		return &mcp.EmbeddedResource{Resource: &mcp.ResourceContents{URI: c.URI, MIMEType: c.MIMEType, Text: c.Text, Blob: c.Data}}
	}
	return &mcp.TextContent{Text: c.Text}
}
