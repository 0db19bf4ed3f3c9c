// Command rhdh-mcp-server serves the fetch, Developer Hub catalog and model
// chat tools over MCP, on stdio or HTTP server-sent events.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rhdh-mcp/internal/config"
	"rhdh-mcp/internal/logging"
	"rhdh-mcp/internal/server"
	"rhdh-mcp/internal/upstream"
)

var flagConfig string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rhdh-mcp-server",
		Short:         "MCP tool server for Developer Hub and Granite models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "console", "Log format: console or json")

	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools on stdio or SSE",
		Example: `  rhdh-mcp-server serve --transport stdio
  rhdh-mcp-server serve --transport sse --port 8000 --toolsets catalog,model`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Persistent flags are merged into Flags() once parsed.
			cfg, err := config.Load(flagConfig, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("transport", "stdio", "Transport: stdio or sse")
	cmd.Flags().Int("port", 8000, "Port for the sse transport")
	cmd.Flags().StringSlice("toolsets", []string{server.ToolsetFetch, server.ToolsetCatalog, server.ToolsetModel}, "Toolsets to expose")
	cmd.Flags().String("mcp-token", "", "Bearer token required on the HTTP routes")
	cmd.Flags().Duration("upstream-timeout", upstream.DefaultTimeout, "Timeout for every outbound call")
	cmd.Flags().Bool("granite-insecure-tls", false, "Skip TLS verification for outbound calls")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	httpClient := upstream.New(upstream.Options{
		Timeout:     cfg.Server.UpstreamTimeout,
		InsecureTLS: cfg.Model.InsecureTLS,
	})
	defs, promptDefs, err := server.Build(cfg.Server.Toolsets, server.NewDeps(httpClient, cfg.Model.Name))
	if err != nil {
		logger.Error().Err(err).Msg("invalid toolsets")
		return err
	}
	tools, err := server.NewRegistry(logger, defs...)
	if err != nil {
		logger.Error().Err(err).Msg("build tool registry")
		return err
	}
	prompts, err := server.NewPrompts(logger, promptDefs...)
	if err != nil {
		logger.Error().Err(err).Msg("build prompts")
		return err
	}

	srv, err := server.New(server.Config{
		Name:        "rhdh-mcp",
		Port:        cfg.Server.Port,
		Token:       cfg.Server.Token,
		TLSCertFile: cfg.Server.TLSCertFile,
		TLSKeyFile:  cfg.Server.TLSKeyFile,
	}, tools, prompts, logger)
	if err != nil {
		logger.Error().Err(err).Msg("build server")
		return err
	}
	logger.Info().Strs("tools", tools.Names()).Str("transport", cfg.Server.Transport).Msg("tool server ready")

	switch cfg.Server.Transport {
	case "stdio":
		err = srv.ServeStdio(ctx)
	case "sse":
		if cfg.Server.Token == "" {
			logger.Warn().Msg("MCP_TOKEN not set; endpoints will be open. Set MCP_TOKEN to secure.")
		}
		err = srv.ListenAndServe(ctx)
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Server.Transport)
	}
	if err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("server stopped")
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), server.Version)
		},
	}
}
