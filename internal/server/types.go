package server

import (
	"encoding/json"
	"maps"
	"slices"
)

// ArgKind orders argument validation: URL-shaped fields are checked first,
// then credentials, then everything else.
type ArgKind int

const (
	KindURL ArgKind = iota
	KindCredential
	KindOther
)

// Types is a JSON schema "type" keyword. A single entry marshals as a string.
type Types []string

func (t Types) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// Property describes one named tool parameter.
type Property struct {
	Type        Types   `json:"type"`
	Description string  `json:"description,omitempty"`
	Kind        ArgKind `json:"-"`
}

// Schema is the input schema of a tool.
type Schema struct {
	Type       string              `json:"type"`
	Required   []string            `json:"required,omitempty"`
	Properties map[string]Property `json:"properties"`
}

// Tool describes an MCP tool and its input schema.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

func (t Tool) clone() Tool {
	t.InputSchema.Required = slices.Clone(t.InputSchema.Required)
	props := maps.Clone(t.InputSchema.Properties)
	for k, p := range props {
		p.Type = slices.Clone(p.Type)
		props[k] = p
	}
	t.InputSchema.Properties = props
	return t
}

// CallRequest is a tool invocation by name.
type CallRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"arguments"`
}

// ContentKind tags a content item.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentImage    ContentKind = "image"
	ContentResource ContentKind = "resource"
)

// Content is one item of a tool result.
type Content struct {
	Type     ContentKind `json:"type"`
	Text     string      `json:"text,omitempty"`
	Data     []byte      `json:"data,omitempty"`
	MIMEType string      `json:"mimeType,omitempty"`
	URI      string      `json:"uri,omitempty"`
}

// Result is the ordered content returned by a tool.
type Result struct {
	Content []Content `json:"content"`
}

// TextResult wraps s as a single text item.
func TextResult(s string) *Result {
	return &Result{Content: []Content{{Type: ContentText, Text: s}}}
}

// Role tags prompt messages.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// PromptArgument is a named string parameter of a prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt describes a prompt template.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptMessage is one message of an expanded prompt.
type PromptMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// PromptResult is a prompt instance.
type PromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}
