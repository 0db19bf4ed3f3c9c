package server

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"rhdh-mcp/internal/toolerr"
)

// ChatPromptName is the prompt exposed by the model toolset.
const ChatPromptName = "chat-prompt"

const chatPromptDescription = "A simple prompt with optional context and chat message"

// Expander renders a prompt from its string arguments.
type Expander func(args map[string]string) []PromptMessage

// PromptDefinition pairs a prompt descriptor with its expander.
type PromptDefinition struct {
	Prompt Prompt
	Expand Expander
}

// Prompts is the fixed prompt table of a server.
type Prompts struct {
	logger  zerolog.Logger
	prompts []Prompt
	expand  map[string]Expander
}

// NewPrompts registers defs in order. Duplicate names are an error.
func NewPrompts(logger zerolog.Logger, defs ...PromptDefinition) (*Prompts, error) {
	p := &Prompts{
		logger: logger.With().Str("component", "prompts").Logger(),
		expand: make(map[string]Expander, len(defs)),
	}
	for _, d := range defs {
		if _, dup := p.expand[d.Prompt.Name]; dup {
			return nil, fmt.Errorf("prompt %s registered twice", d.Prompt.Name)
		}
		p.expand[d.Prompt.Name] = d.Expand
		p.prompts = append(p.prompts, d.Prompt)
	}
	return p, nil
}

// List returns the registered prompts in registration order.
func (p *Prompts) List() []Prompt {
	out := make([]Prompt, len(p.prompts))
	for i, pr := range p.prompts {
		pr.Arguments = append([]PromptArgument(nil), pr.Arguments...)
		out[i] = pr
	}
	return out
}

// Get expands the named prompt. Required arguments must be present and non-blank.
func (p *Prompts) Get(name string, args map[string]string) (*PromptResult, error) {
	expand, ok := p.expand[name]
	if !ok {
		err := toolerr.UnknownPrompt(name)
		p.logger.Error().Err(err).Msg("get prompt rejected")
		return nil, err
	}
	var desc Prompt
	for _, pr := range p.prompts {
		if pr.Name == name {
			desc = pr
			break
		}
	}
	for _, a := range desc.Arguments {
		if !a.Required {
			continue
		}
		v, present := args[a.Name]
		if !present {
			err := toolerr.Missing(name, a.Name)
			p.logger.Error().Err(err).Msg("get prompt rejected")
			return nil, err
		}
		if strings.TrimSpace(v) == "" {
			err := toolerr.Invalid(name, a.Name, "must not be blank")
			p.logger.Error().Err(err).Msg("get prompt rejected")
			return nil, err
		}
	}
	msgs := expand(args)
	p.logger.Debug().Str("prompt", name).Int("messages", len(msgs)).Msg("prompt expanded")
	return &PromptResult{Description: desc.Description, Messages: msgs}, nil
}

// ChatPrompt is the chat-prompt definition.
func ChatPrompt() PromptDefinition {
	return PromptDefinition{
		Prompt: Prompt{
			Name:        ChatPromptName,
			Description: chatPromptDescription,
			Arguments: []PromptArgument{
				{Name: "context", Description: "Additional context to consider"},
				{Name: "topic", Description: "The chat message to send to the model", Required: true},
			},
		},
		Expand: func(args map[string]string) []PromptMessage {
			return ChatMessages(args["topic"], args["context"])
		},
	}
}

// ChatMessages emits a context message when context is non-empty, followed by
// the topic as the final user message.
func ChatMessages(topic, context string) []PromptMessage {
	msgs := make([]PromptMessage, 0, 2)
	if context != "" {
		msgs = append(msgs, userText("Here is some relevant context: "+context))
	}
	return append(msgs, userText(topic))
}

func userText(s string) PromptMessage {
	return PromptMessage{Role: RoleUser, Content: Content{Type: ContentText, Text: s}}
}
