package demo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/mcpclient"
)

// RunSession launches the configured server, runs the session demo against it
// and tears the child process down on every return path, panics included.
// A plan file named by cfg.PlanPath applies before opts.
func RunSession(ctx context.Context, cfg Config, w io.Writer, opts ...Option) (*Report, error) {
	if cfg.PlanPath != "" {
		plan, err := LoadPlan(cfg.PlanPath)
		if err != nil {
			return nil, err
		}
		opts = append([]Option{WithPlan(plan)}, opts...)
	}
	o := newOptions(opts)

	cmd := exec.Command(cfg.ServerCommand, cfg.ServerArgs...)
	sess, err := mcpclient.Connect(ctx, cmd,
		mcpclient.WithLogger(o.log),
		mcpclient.WithClientInfo(mcp.ImplementationInfo{Name: cfg.ClientName, Version: "0.1.0"}),
		mcpclient.WithShutdownGrace(cfg.ShutdownGrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.ServerCommand, err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			o.log.ErrorContext(ctx, "demo.session.close_fail", slog.String("err", err.Error()))
		}
	}()

	var target Session = sess
	if o.wrap != nil {
		target = o.wrap(sess)
	}
	return NewRunner(w, opts...).Run(ctx, target)
}
