package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"rhdh-mcp/internal/upstream"
)

// stubTransport answers every request with a canned response and counts calls.
type stubTransport struct {
	calls  atomic.Int32
	status int
	body   string
	last   atomic.Pointer[http.Request]
}

func (s *stubTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	s.calls.Add(1)
	s.last.Store(r)
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(s.body)),
		Request:    r,
	}, nil
}

func allToolsets() []string {
	return []string{ToolsetFetch, ToolsetCatalog, ToolsetModel}
}

func newTestTables(t *testing.T, rt http.RoundTripper) (*Registry, *Prompts) {
	t.Helper()
	deps := NewDeps(upstream.New(upstream.Options{Transport: rt}), "granite3-dense:8b")
	defs, promptDefs, err := Build(allToolsets(), deps)
	require.NoError(t, err)
	reg, err := NewRegistry(zerolog.Nop(), defs...)
	require.NoError(t, err)
	prompts, err := NewPrompts(zerolog.Nop(), promptDefs...)
	require.NoError(t, err)
	return reg, prompts
}
