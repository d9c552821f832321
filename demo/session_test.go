package demo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ggoodman/mcp-greeter-go/examples/greeter"
	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/mcpclient"
	"github.com/ggoodman/mcp-greeter-go/stdio"
)

const helperEnv = "DEMO_WANT_HELPER_PROCESS"

// TestHelperProcess is not a real test. It serves the greeter over stdio when
// re-executed by RunSession.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	h := stdio.NewHandler(greeter.New(greeter.WithLogger(log)), stdio.WithLogger(log))
	if err := h.Serve(context.Background()); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func helperConfig(t *testing.T) Config {
	t.Helper()
	t.Setenv(helperEnv, "1")
	return Config{
		ServerCommand: os.Args[0],
		ServerArgs:    []string{"-test.run=^TestHelperProcess$"},
		ClientName:    "demo-test",
		ShutdownGrace: 2 * time.Second,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// panicky delegates to the live session but panics on the first listing.
type panicky struct{ Session }

func (panicky) ListTools(context.Context) ([]mcp.Tool, error) { panic("boom") }

// cancelling cancels the run once tools have been listed.
type cancelling struct {
	Session
	cancel context.CancelFunc
}

func (c cancelling) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	tools, err := c.Session.ListTools(ctx)
	c.cancel()
	return tools, err
}

func TestRunSession_EndToEnd(t *testing.T) {
	cfg := helperConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var captured *mcpclient.Session
	wrap := func(s *mcpclient.Session) Session {
		captured = s
		return s
	}

	var out bytes.Buffer
	rep, err := RunSession(ctx, cfg, &out, WithLogger(quietLogger()), func(o *options) { o.wrap = wrap })
	if err != nil {
		t.Fatalf("RunSession: %v\n%s", err, out.String())
	}
	mustContain(t, out.String(),
		"🚀 Connected to KaitoMCPServer!",
		"• add: Add two numbers",
		"greeting://",
		"add(15, 27) = 42",
		"add(100, 50) = 150",
		"Resource greeting://Alice: Hello, Alice!",
		"Resource greeting://Bob: Hello, Bob!",
		"Resource greeting://World: Hello, World!",
		"✅ Client testing completed!",
	)
	if failed := rep.Failed(); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if captured == nil || !captured.Exited() {
		t.Fatalf("server process still running after RunSession returned")
	}
}

func TestRunSession_PlanFile(t *testing.T) {
	cfg := helperConfig(t)
	path := t.TempDir() + "/plan.yaml"
	if err := os.WriteFile(path, []byte("adds:\n  - {a: 1, b: 2}\nnames: [Zed]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.PlanPath = path

	var out bytes.Buffer
	rep, err := RunSession(context.Background(), cfg, &out, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	mustContain(t, out.String(), "add(1, 2) = 3", "Resource greeting://Zed: Hello, Zed!")
	if len(rep.Tools) != 1 || len(rep.Reads) != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestRunSession_TeardownOnPanic(t *testing.T) {
	cfg := helperConfig(t)

	var captured *mcpclient.Session
	wrap := func(s *mcpclient.Session) Session {
		captured = s
		return panicky{s}
	}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_, _ = RunSession(context.Background(), cfg, io.Discard, WithLogger(quietLogger()), func(o *options) { o.wrap = wrap })
	}()

	if captured == nil || !captured.Exited() {
		t.Fatalf("server process not terminated after panic")
	}
}

func TestRunSession_Cancelled(t *testing.T) {
	cfg := helperConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var captured *mcpclient.Session
	wrap := func(s *mcpclient.Session) Session {
		captured = s
		return cancelling{Session: s, cancel: cancel}
	}

	var out bytes.Buffer
	_, err := RunSession(ctx, cfg, &out, WithLogger(quietLogger()), func(o *options) { o.wrap = wrap })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if captured == nil || !captured.Exited() {
		t.Fatalf("server process not terminated after cancellation")
	}
}

func TestRunSession_ConnectFailure(t *testing.T) {
	t.Parallel()
	cfg := Config{ServerCommand: "/nonexistent/greeter-server", ShutdownGrace: 100 * time.Millisecond}
	if _, err := RunSession(context.Background(), cfg, io.Discard, WithLogger(quietLogger())); err == nil {
		t.Fatalf("expected connect error")
	}
}

func TestRunSession_BadPlanFile(t *testing.T) {
	t.Parallel()
	cfg := Config{ServerCommand: "/nonexistent/greeter-server", PlanPath: "/nonexistent/plan.yaml"}
	_, err := RunSession(context.Background(), cfg, io.Discard)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing plan error, got %v", err)
	}
}
