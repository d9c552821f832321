package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func execute(t *testing.T, ctx context.Context, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return out.String()
}

func TestRootCmd_HelpDoesNotLaunchServer(t *testing.T) {
	// A server launch would fail loudly with this command.
	t.Setenv("MCP_SERVER_COMMAND", "/nonexistent/greeter-server")
	for _, flag := range []string{"--help", "-h"} {
		out := execute(t, context.Background(), flag)
		if !strings.Contains(out, "Usage:") || !strings.Contains(out, "MCP_SERVER_COMMAND") {
			t.Fatalf("%s: unexpected help:\n%s", flag, out)
		}
		if strings.Contains(out, "Client error") {
			t.Fatalf("%s: help must not launch the server:\n%s", flag, out)
		}
	}
}

func TestRootCmd_ConnectFailureExitsCleanly(t *testing.T) {
	t.Setenv("MCP_SERVER_COMMAND", "/nonexistent/greeter-server")
	out := execute(t, context.Background())
	if !strings.Contains(out, "❌ Client error:") {
		t.Fatalf("expected client error line:\n%s", out)
	}
}

func TestRootCmd_Interrupted(t *testing.T) {
	t.Setenv("MCP_SERVER_COMMAND", "/nonexistent/greeter-server")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := execute(t, ctx)
	if !strings.Contains(out, "👋 Client interrupted by user") {
		t.Fatalf("expected interruption line:\n%s", out)
	}
}

func TestRootCmd_BadConfig(t *testing.T) {
	t.Setenv("MCP_SHUTDOWN_GRACE", "soon")
	out := execute(t, context.Background())
	if !strings.Contains(out, "❌ Client error: decode environment") {
		t.Fatalf("expected config error:\n%s", out)
	}
}
