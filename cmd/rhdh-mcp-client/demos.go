package main

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"rhdh-mcp/internal/client"
	"rhdh-mcp/internal/extract"
	"rhdh-mcp/internal/granite"
	"rhdh-mcp/internal/server"
	"rhdh-mcp/internal/upstream"
)

const previewLen = 66

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "fetch [url]",
		Short:   "List tools, then fetch a web page through the server",
		GroupID: "demo",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := "https://example.com"
			if len(args) == 1 {
				url = args[0]
			}
			return withSession(cmd, func(ctx context.Context, e *env, s *client.Session) error {
				tools, err := s.ListTools(ctx)
				if err != nil {
					return err
				}
				if err := e.out.Value(tools); err != nil {
					return err
				}
				res, err := s.CallTool(ctx, "fetch", map[string]any{"url": url})
				if err != nil {
					return err
				}
				e.out.Section("Tool result:", client.Text(res))
				return nil
			})
		},
	}
}

// catalogQuestions are asked of the local model about the inference server
// listing; each answer is expected to contain a single URL.
var catalogQuestions = []struct {
	label    string
	question string
}{
	{"service sign-up URL", "Given the following context, where should I go to sign up for the 3scale-based developer-model-service? Respond with ONLY the URL:\n"},
	{"ollama inference service URL", "Given the following context, what is the ollama inference server URL? Respond with ONLY the URL:\n"},
	{"VLLM inference service URL", "Given the following context, what is the VLLM inference server URL? Respond with ONLY the URL:\n"},
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "catalog",
		Short:   "Query the Developer Hub catalog and ask a local model about it",
		Long:    "Requires RHDH_API_URL and RHDH_API_KEY. The model questions go to a local Ollama server (OLLAMA_HOST).",
		GroupID: "demo",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if err := e.cfg.RequireCatalog(); err != nil {
				return err
			}
			return e.run(cmd.Context(), runCatalog)
		},
	}
	cmd.Flags().String("ollama-host", "", "Ollama server URL")
	cmd.Flags().String("ollama-model", "", "Ollama model name")
	return cmd
}

func runCatalog(ctx context.Context, e *env, s *client.Session) error {
	tools, err := s.ListTools(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	e.out.Field("Tools", names)

	res, err := s.CallTool(ctx, "fetch", map[string]any{"url": "https://example.com"})
	if err != nil {
		return err
	}
	e.out.Truncated("First few characters from website", client.Text(res), previewLen)

	creds := map[string]any{"url": e.cfg.Catalog.URL, "apiKey": e.cfg.Catalog.APIKey}
	var servers string
	for _, q := range []struct{ tool, title string }{
		{"get_tags", "Tag list from RHDH API:"},
		{"get_apis", "API list from RHDH API:"},
		{"get_inference_servers", "Inference server list from RHDH API:"},
	} {
		res, err := s.CallTool(ctx, q.tool, creds)
		if err != nil {
			return err
		}
		servers = client.Text(res)
		e.out.Section(q.title, servers)
	}

	ollama := granite.NewOllama(e.cfg.Ollama.Host, e.cfg.Ollama.Model, upstream.New(upstream.Options{Timeout: flagTimeout}))
	answers := make([]granite.Completion, len(catalogQuestions))
	p := pool.New().WithErrors().WithContext(ctx)
	for i, q := range catalogQuestions {
		p.Go(func(ctx context.Context) error {
			out, err := ollama.Ask(ctx, q.question+servers)
			if err != nil {
				return fmt.Errorf("ask %s: %w", q.label, err)
			}
			e.logger.Info().Dur("inference_time", out.Duration).Str("question", q.label).Msg("model answered")
			answers[i] = out
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	for i, q := range catalogQuestions {
		e.out.Section("The "+q.label+" response is:", answers[i].Text)
	}
	for i, q := range catalogQuestions {
		url, ok := extract.URL(answers[i].Text)
		if !ok {
			e.out.Warn("The %s was not found", q.label)
			continue
		}
		e.out.Field("The "+q.label+" is", url)
	}
	return nil
}

func newChatCmd() *cobra.Command {
	var topic, promptContext string
	cmd := &cobra.Command{
		Use:     "chat",
		Short:   "Expand the chat prompt and send it to the model through the server",
		Long:    "Requires GRANITE_API_URL and GRANITE_API_KEY.",
		GroupID: "demo",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if err := e.cfg.RequireModel(); err != nil {
				return err
			}
			return e.run(cmd.Context(), func(ctx context.Context, e *env, s *client.Session) error {
				return runChat(ctx, e, s, topic, promptContext)
			})
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "It's sunset time. What color is the sky?", "Chat message")
	cmd.Flags().StringVar(&promptContext, "context", "The sky is red at sunset.", "Context for the chat message")
	cmd.Flags().String("granite-model", "", "Model name sent with the chat request")
	return cmd
}

func runChat(ctx context.Context, e *env, s *client.Session, topic, promptContext string) error {
	prompts, err := s.ListPrompts(ctx)
	if err != nil {
		return err
	}
	if err := e.out.Value(prompts); err != nil {
		return err
	}

	prompt, err := s.GetPrompt(ctx, server.ChatPromptName, map[string]string{
		"context": promptContext,
		"topic":   topic,
	})
	if err != nil {
		return err
	}
	e.logger.Info().Int("messages", len(prompt.Messages)).Str("description", prompt.Description).Msg("prompt expanded")
	if err := e.out.Value(prompt); err != nil {
		return err
	}

	tools, err := s.ListTools(ctx)
	if err != nil {
		return err
	}
	e.logger.Debug().Int("tools", len(tools)).Msg("tools listed")

	arg, err := client.PromptArgument(prompt)
	if err != nil {
		return err
	}
	res, err := s.CallTool(ctx, "chat", map[string]any{
		"url":    e.cfg.Model.URL,
		"apiKey": e.cfg.Model.APIKey,
		"model":  e.cfg.Model.Name,
		"prompt": arg,
	})
	if err != nil {
		return err
	}
	e.out.Section("Response from Granite API:", client.Text(res))
	return nil
}
