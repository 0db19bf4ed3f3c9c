package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rhdh-mcp/internal/toolerr"
)

// Handler executes a tool against arguments that already passed schema validation.
type Handler func(ctx context.Context, args Args) (*Result, error)

// Definition pairs a tool descriptor with its handler.
type Definition struct {
	Tool    Tool
	Handler Handler
}

type entry struct {
	tool    Tool
	checks  []argCheck
	handler Handler
}

// Registry is the fixed name -> tool table of a server. It is built once and
// never mutated, so it is safe to share between sessions.
type Registry struct {
	logger  zerolog.Logger
	tools   []Tool
	entries map[string]*entry
}

// NewRegistry validates and registers defs in order.
func NewRegistry(logger zerolog.Logger, defs ...Definition) (*Registry, error) {
	r := &Registry{
		logger:  logger.With().Str("component", "registry").Logger(),
		entries: make(map[string]*entry, len(defs)),
	}
	for _, d := range defs {
		if d.Tool.Name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if d.Handler == nil {
			return nil, fmt.Errorf("tool %s: nil handler", d.Tool.Name)
		}
		if _, dup := r.entries[d.Tool.Name]; dup {
			return nil, fmt.Errorf("tool %s registered twice", d.Tool.Name)
		}
		if d.Tool.InputSchema.Type == "" {
			d.Tool.InputSchema.Type = "object"
		}
		checks, err := compileChecks(d.Tool)
		if err != nil {
			return nil, err
		}
		tool := d.Tool.clone()
		r.entries[tool.Name] = &entry{tool: tool, checks: checks, handler: d.Handler}
		r.tools = append(r.tools, tool)
	}
	return r, nil
}

// List returns the registered descriptors in registration order. The MCP
// tools/list response is ordered by name instead; the SDK sorts it.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.clone()
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.Name
	}
	return out
}

// Call validates args against the named tool's schema and runs its handler.
// Nothing reaches the handler unless validation passes.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (*Result, error) {
	log := r.logger.With().Str("invocation", uuid.NewString()).Str("tool", name).Logger()

	e, ok := r.entries[name]
	if !ok {
		err := toolerr.UnknownTool(name)
		log.Error().Err(err).Msg("tool call rejected")
		return nil, err
	}
	if err := validateArgs(name, e.checks, args); err != nil {
		log.Error().Err(err).Msg("tool call rejected")
		return nil, err
	}

	start := time.Now()
	log.Info().Msg("tool call started")
	res, err := e.handler(ctx, Args(args))
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("tool call failed")
		return nil, err
	}
	if res == nil {
		res = &Result{}
	}
	log.Info().Dur("duration", time.Since(start)).Int("items", len(res.Content)).Msg("tool call finished")
	return res, nil
}

// Args gives handlers typed access to validated arguments.
type Args map[string]any

// String returns the string value of key, or "" when absent or not a string.
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Has reports whether key is present with a non-nil value.
func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}
