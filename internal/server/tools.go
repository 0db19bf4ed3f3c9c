package server

import (
	"context"
	"fmt"
	"strings"

	"rhdh-mcp/internal/catalog"
	"rhdh-mcp/internal/granite"
	"rhdh-mcp/internal/toolerr"
	"rhdh-mcp/internal/upstream"
)

// Toolset names accepted by Build.
const (
	ToolsetFetch   = "fetch"
	ToolsetCatalog = "catalog"
	ToolsetModel   = "model"
)

// Deps are the shared outbound clients used by tool handlers.
type Deps struct {
	HTTP         *upstream.Client
	Catalog      *catalog.Client
	Model        *granite.Client
	DefaultModel string
}

// NewDeps wires every client onto one upstream client.
func NewDeps(httpClient *upstream.Client, defaultModel string) Deps {
	return Deps{
		HTTP:         httpClient,
		Catalog:      catalog.New(httpClient),
		Model:        granite.New(httpClient),
		DefaultModel: defaultModel,
	}
}

var (
	urlProp = Property{Type: Types{"string"}, Description: "URL to fetch", Kind: KindURL}
	keyProp = Property{
		Type:        Types{"string"},
		Description: "API key to use in the Authorization: Bearer header",
		Kind:        KindCredential,
	}
)

func authedSchema() Schema {
	return Schema{
		Type:       "object",
		Required:   []string{"url", "apiKey"},
		Properties: map[string]Property{"url": urlProp, "apiKey": keyProp},
	}
}

// Build returns the tool and prompt definitions for the named toolsets.
func Build(toolsets []string, d Deps) ([]Definition, []PromptDefinition, error) {
	var tools []Definition
	var prompts []PromptDefinition
	seen := map[string]bool{}
	for _, ts := range toolsets {
		ts = strings.ToLower(strings.TrimSpace(ts))
		if seen[ts] {
			continue
		}
		seen[ts] = true
		switch ts {
		case ToolsetFetch:
			tools = append(tools, FetchTool(d))
		case ToolsetCatalog:
			tools = append(tools, CatalogTools(d)...)
		case ToolsetModel:
			tools = append(tools, ChatTool(d))
			prompts = append(prompts, ChatPrompt())
		default:
			return nil, nil, fmt.Errorf("unknown toolset %q", ts)
		}
	}
	return tools, prompts, nil
}

// FetchTool fetches a web page and returns its body.
func FetchTool(d Deps) Definition {
	return Definition{
		Tool: Tool{
			Name:        "fetch",
			Description: "Fetches a webpage and returns its content",
			InputSchema: Schema{
				Type:       "object",
				Required:   []string{"url"},
				Properties: map[string]Property{"url": urlProp},
			},
		},
		Handler: func(ctx context.Context, args Args) (*Result, error) {
			body, err := d.HTTP.Get(ctx, args.String("url"), nil)
			if err != nil {
				return nil, fmt.Errorf("fetch: %w", err)
			}
			return TextResult(body), nil
		},
	}
}

// CatalogTools are the Developer Hub catalog queries.
func CatalogTools(d Deps) []Definition {
	query := func(q catalog.Query) Handler {
		return func(ctx context.Context, args Args) (*Result, error) {
			body, err := d.Catalog.Query(ctx, args.String("url"), args.String("apiKey"), q)
			if err != nil {
				return nil, err
			}
			return TextResult(body), nil
		}
	}

	return []Definition{
		{
			Tool: Tool{
				Name:        "get_tags",
				Description: "Gets metadata about the tags in Developer Hub: the name of each tag (value), and the number of times each tag is used (count).",
				InputSchema: authedSchema(),
			},
			Handler: query(catalog.QueryTags),
		},
		{
			Tool: Tool{
				Name:        "get_apis",
				Description: "Gets a list of APIs registered in Developer Hub",
				InputSchema: authedSchema(),
			},
			Handler: query(catalog.QueryAPIs),
		},
		{
			Tool: Tool{
				Name:        "get_inference_servers",
				Description: "Gets a list of model inference servers registered in Developer Hub",
				InputSchema: authedSchema(),
			},
			Handler: query(catalog.QueryInferenceServers),
		},
		{
			Tool: Tool{
				Name:        "get_from_rhdh_catalog",
				Description: "Gets an arbitrary Developer Hub catalog URL, optionally authenticated with an API key",
				InputSchema: Schema{
					Type:     "object",
					Required: []string{"url"},
					Properties: map[string]Property{
						"url":    {Type: Types{"string"}, Description: "Full catalog URL to get", Kind: KindURL},
						"apiKey": keyProp,
					},
				},
			},
			Handler: func(ctx context.Context, args Args) (*Result, error) {
				body, err := d.Catalog.Get(ctx, args.String("url"), args.String("apiKey"))
				if err != nil {
					return nil, err
				}
				return TextResult(body), nil
			},
		},
	}
}

// ChatTool sends a prompt to a chat-completion endpoint.
func ChatTool(d Deps) Definition {
	schema := authedSchema()
	schema.Properties["model"] = Property{
		Type:        Types{"string"},
		Description: "The name of the model, for example granite3-dense:8b",
		Kind:        KindOther,
	}
	schema.Properties["prompt"] = Property{
		Type:        Types{"object", "string"},
		Description: "The chat-prompt result to send, or plain text",
		Kind:        KindOther,
	}

	return Definition{
		Tool: Tool{
			Name:        "chat",
			Description: "Sends a chat request to the model",
			InputSchema: schema,
		},
		Handler: func(ctx context.Context, args Args) (*Result, error) {
			if !args.Has("prompt") {
				return nil, toolerr.Missing("chat", "prompt")
			}
			msgs, err := promptMessages(args["prompt"])
			if err != nil {
				return nil, err
			}
			model := args.String("model")
			if model == "" {
				model = d.DefaultModel
			}
			out, err := d.Model.Chat(ctx, args.String("url"), args.String("apiKey"), model, msgs)
			if err != nil {
				return nil, err
			}
			return TextResult(out.Text), nil
		},
	}
}

// promptMessages accepts either plain text or a prompt instance
// ({"messages":[{"role":..,"content":{"type":"text","text":..}}]}).
func promptMessages(v any) ([]granite.Message, error) {
	switch p := v.(type) {
	case string:
		if strings.TrimSpace(p) == "" {
			return nil, toolerr.Invalid("chat", "prompt", "must not be blank")
		}
		return []granite.Message{{Role: granite.RoleUser, Content: p}}, nil
	case map[string]any:
		raw, ok := p["messages"].([]any)
		if !ok {
			return nil, toolerr.Invalid("chat", "prompt", "must carry a messages list")
		}
		var msgs []granite.Message
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, toolerr.Invalid("chat", "prompt", "messages must be objects")
			}
			role, _ := m["role"].(string)
			msgs = append(msgs, granite.Message{Role: role, Content: messageText(m["content"])})
		}
		if len(msgs) == 0 {
			return nil, toolerr.Invalid("chat", "prompt", "has no messages")
		}
		return msgs, nil
	}
	return nil, toolerr.Invalid("chat", "prompt", fmt.Sprintf("unsupported type %T", v))
}

func messageText(c any) string {
	switch t := c.(type) {
	case string:
		return t
	case map[string]any:
		s, _ := t["text"].(string)
		return s
	}
	return ""
}
