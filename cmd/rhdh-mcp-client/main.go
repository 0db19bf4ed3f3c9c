// Command rhdh-mcp-client talks to an rhdh-mcp tool server: it lists and
// calls tools, expands prompts and runs the catalog and chat walkthroughs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rhdh-mcp/internal/client"
	"rhdh-mcp/internal/config"
	"rhdh-mcp/internal/logging"
	"rhdh-mcp/internal/output"
)

const defaultServerCmd = "rhdh-mcp-server serve --transport stdio"

var (
	flagConfig    string
	flagServerCmd string
	flagSSEURL    string
	flagJSON      bool
	flagTimeout   time.Duration
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		output.New(false).Error(err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rhdh-mcp-client",
		Short:         "Client for the rhdh-mcp tool server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (yaml, json or toml)")
	pf.StringVar(&flagServerCmd, "server-cmd", defaultServerCmd, "Command that starts the server on stdio")
	pf.StringVar(&flagSSEURL, "sse-url", "", "SSE endpoint of a running server, e.g. http://localhost:8000/sse")
	pf.String("mcp-token", "", "Bearer token for the SSE endpoint")
	pf.BoolVar(&flagJSON, "json", false, "Output as JSON instead of YAML")
	pf.DurationVar(&flagTimeout, "timeout", 2*time.Minute, "Bound on every request to the server")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "console", "Log format: console or json")

	root.AddGroup(
		&cobra.Group{ID: "mcp", Title: "Protocol:"},
		&cobra.Group{ID: "demo", Title: "Walkthroughs:"},
	)
	root.AddCommand(
		newToolsCmd(), newPromptsCmd(), newPromptCmd(), newCallCmd(),
		newFetchCmd(), newCatalogCmd(), newChatCmd(),
	)
	return root
}

// env bundles what every command needs before it opens a session.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	out    *output.Printer
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(flagConfig, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		logger: logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}),
		out:    output.New(flagJSON),
	}, nil
}

func (e *env) connect(ctx context.Context) (*client.Session, error) {
	opts := client.Options{
		SSEURL:  flagSSEURL,
		Token:   e.cfg.Server.Token,
		Timeout: flagTimeout,
	}
	if opts.SSEURL == "" {
		opts.Command = strings.Fields(flagServerCmd)
	}
	sess, err := client.Connect(ctx, opts, e.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to server: %w", err)
	}
	return sess, nil
}

// withSession runs fn against a fresh session and closes it afterwards.
func withSession(cmd *cobra.Command, fn func(context.Context, *env, *client.Session) error) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	return e.run(cmd.Context(), fn)
}

func (e *env) run(ctx context.Context, fn func(context.Context, *env, *client.Session) error) error {
	sess, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			e.logger.Debug().Err(err).Msg("close session")
		}
	}()
	return fn(ctx, e, sess)
}
