// Command session-demo launches the greeter server as a subprocess and talks
// to it over MCP stdio.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/ggoodman/mcp-greeter-go/demo"
	"github.com/ggoodman/mcp-greeter-go/internal/logctx"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session-demo",
		Short: "Run the KaitoMCPServer client demo over an MCP stdio session",
		Long: `Run the KaitoMCPServer client demo over an MCP stdio session.

The server command is read from the environment:
  MCP_SERVER_COMMAND  executable to launch (default "go")
  MCP_SERVER_ARGS     ";"-separated arguments (default "run;./cmd/greeter-server")
  MCP_SHUTDOWN_GRACE  time allowed for the server to exit before it is killed
  MCP_DEMO_PLAN       optional YAML file overriding the tool calls and reads
  LOG_LEVEL           client diagnostic log level (default "warn")`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			cfg, err := demo.LoadConfig()
			if err != nil {
				fmt.Fprintf(out, "❌ Client error: %v\n", err)
				return nil
			}
			log := logctx.New(cmd.ErrOrStderr(), cfg.Level())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			_, err = demo.RunSession(ctx, cfg, out, demo.WithLogger(log))
			switch {
			case err == nil:
			case ctx.Err() != nil || errors.Is(err, context.Canceled):
				fmt.Fprintln(out, "\n👋 Client interrupted by user")
			default:
				fmt.Fprintf(out, "❌ Client error: %v\n", err)
			}
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
