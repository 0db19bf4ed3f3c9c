package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rhdh-mcp/internal/client"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "tools",
		Short:   "List the server's tools",
		GroupID: "mcp",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, e *env, s *client.Session) error {
				tools, err := s.ListTools(ctx)
				if err != nil {
					return err
				}
				return e.out.Value(tools)
			})
		},
	}
}

func newPromptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "prompts",
		Short:   "List the server's prompts",
		GroupID: "mcp",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, e *env, s *client.Session) error {
				prompts, err := s.ListPrompts(ctx)
				if err != nil {
					return err
				}
				return e.out.Value(prompts)
			})
		},
	}
}

func newPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "prompt <name> [key=value...]",
		Short:   "Expand a prompt",
		GroupID: "mcp",
		Example: `  rhdh-mcp-client prompt chat-prompt topic="What color is the sky?" context="It is sunset."`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			promptArgs, err := parsePairs(args[1:])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, e *env, s *client.Session) error {
				res, err := s.GetPrompt(ctx, args[0], promptArgs)
				if err != nil {
					return err
				}
				return e.out.Value(res)
			})
		},
	}
}

func newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "call <tool> [json-args]",
		Short:   "Invoke any tool directly",
		GroupID: "mcp",
		Example: `  rhdh-mcp-client call fetch '{"url":"https://example.com"}'
  rhdh-mcp-client call get_tags '{"url":"https://devhub.example.com","apiKey":"..."}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs := map[string]any{}
			if len(args) > 1 {
				if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
					return fmt.Errorf("invalid JSON arguments: %w", err)
				}
			}
			return withSession(cmd, func(ctx context.Context, e *env, s *client.Session) error {
				res, err := s.CallTool(ctx, args[0], toolArgs)
				if err != nil {
					return err
				}
				if e.out.JSON {
					return e.out.Value(res)
				}
				fmt.Fprintln(e.out.Out, client.Text(res))
				return nil
			})
		},
	}
}

// parsePairs reads key=value arguments.
func parsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
