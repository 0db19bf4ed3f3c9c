package server

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhdh-mcp/internal/toolerr"
)

func newChatPrompts(t *testing.T) *Prompts {
	t.Helper()
	p, err := NewPrompts(zerolog.Nop(), ChatPrompt())
	require.NoError(t, err)
	return p
}

func TestChatPromptTopicOnly(t *testing.T) {
	res, err := newChatPrompts(t).Get(ChatPromptName, map[string]string{"topic": "T"})
	require.NoError(t, err)

	require.Len(t, res.Messages, 1)
	assert.Equal(t, RoleUser, res.Messages[0].Role)
	assert.Equal(t, "T", res.Messages[0].Content.Text)
	assert.Equal(t, chatPromptDescription, res.Description)
}

func TestChatPromptWithContext(t *testing.T) {
	res, err := newChatPrompts(t).Get(ChatPromptName, map[string]string{"topic": "T", "context": "C"})
	require.NoError(t, err)

	require.Len(t, res.Messages, 2)
	assert.Contains(t, res.Messages[0].Content.Text, "C")
	assert.Equal(t, RoleUser, res.Messages[0].Role)
	assert.Equal(t, "T", res.Messages[1].Content.Text)
}

func TestChatMessagesIsDeterministic(t *testing.T) {
	assert.Equal(t, ChatMessages("T", "C"), ChatMessages("T", "C"))
	assert.Len(t, ChatMessages("T", ""), 1)
}

func TestPromptErrors(t *testing.T) {
	p := newChatPrompts(t)

	_, err := p.Get("example-prompt", map[string]string{"topic": "T"})
	assert.ErrorIs(t, err, toolerr.ErrUnknownPrompt)

	_, err = p.Get(ChatPromptName, nil)
	assert.ErrorIs(t, err, toolerr.ErrMissingArgument)

	_, err = p.Get(ChatPromptName, map[string]string{"topic": " "})
	assert.ErrorIs(t, err, toolerr.ErrInvalidArgument)
}

func TestPromptsListIsStable(t *testing.T) {
	p := newChatPrompts(t)
	first := p.List()
	first[0].Arguments[0].Name = "mutated"

	assert.Equal(t, p.List(), p.List())
	assert.Equal(t, "context", p.List()[0].Arguments[0].Name)
}

func TestNewPromptsRejectsDuplicates(t *testing.T) {
	_, err := NewPrompts(zerolog.Nop(), ChatPrompt(), ChatPrompt())
	assert.Error(t, err)
}
