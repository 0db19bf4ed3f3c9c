package toolerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgumentErrors(t *testing.T) {
	err := Missing("get_tags", "apiKey")
	assert.True(t, errors.Is(err, ErrMissingArgument))
	assert.False(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, "get_tags: missing required argument 'apiKey'", err.Error())

	err = Invalid("fetch", "url", "must not be blank")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, "fetch: argument 'url' must not be blank", err.Error())

	var ae *ArgumentError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, "url", ae.Field)
}

func TestUnknownNames(t *testing.T) {
	assert.ErrorIs(t, UnknownTool("nope"), ErrUnknownTool)
	assert.ErrorIs(t, UnknownPrompt("nope"), ErrUnknownPrompt)
	assert.Contains(t, UnknownPrompt("nope").Error(), "nope")
}
