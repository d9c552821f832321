// Command greeter-server serves the KaitoMCPServer over stdio.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ggoodman/mcp-greeter-go/examples/greeter"
	"github.com/ggoodman/mcp-greeter-go/internal/logctx"
	"github.com/ggoodman/mcp-greeter-go/stdio"
	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"
)

type config struct {
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func (c config) level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "greeter-server",
		Short:         "Serve the KaitoMCPServer greeter over stdio",
		Long:          "Serve the KaitoMCPServer greeter (the add tool and greeting://{name} resources) as newline-delimited JSON-RPC on stdin/stdout. Logs go to stderr.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg config
			if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
				return fmt.Errorf("decode environment: %w", err)
			}

			lv := &slog.LevelVar{}
			lv.Set(cfg.level())
			log := logctx.New(cmd.ErrOrStderr(), lv)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), log, lv)
		},
	}
}

func serve(ctx context.Context, r io.Reader, w io.Writer, log *slog.Logger, lv *slog.LevelVar) error {
	srv := greeter.New(greeter.WithLogger(log), greeter.WithLevelVar(lv))
	h := stdio.NewHandler(srv, stdio.WithIO(r, w), stdio.WithLogger(log))

	log.InfoContext(ctx, "greeter.serve.start", slog.String("server", greeter.Name))
	err := h.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		log.ErrorContext(ctx, "greeter.serve.fail", slog.String("err", err.Error()))
		return err
	}
	log.InfoContext(ctx, "greeter.serve.stop")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
