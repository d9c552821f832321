package demo

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"MCP_SERVER_COMMAND", "MCP_SERVER_ARGS", "MCP_CLIENT_NAME", "MCP_SHUTDOWN_GRACE", "LOG_LEVEL", "MCP_DEMO_PLAN"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerCommand != "go" {
		t.Fatalf("ServerCommand = %q", cfg.ServerCommand)
	}
	if !reflect.DeepEqual(cfg.ServerArgs, []string{"run", "./cmd/greeter-server"}) {
		t.Fatalf("ServerArgs = %v", cfg.ServerArgs)
	}
	if cfg.ShutdownGrace != 2*time.Second {
		t.Fatalf("ShutdownGrace = %v", cfg.ShutdownGrace)
	}
	if cfg.Level() != slog.LevelWarn {
		t.Fatalf("Level = %v", cfg.Level())
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("MCP_SERVER_COMMAND", "/usr/local/bin/greeter-server")
	t.Setenv("MCP_SERVER_ARGS", "--verbose;--foo")
	t.Setenv("MCP_SHUTDOWN_GRACE", "750ms")
	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerCommand != "/usr/local/bin/greeter-server" {
		t.Fatalf("ServerCommand = %q", cfg.ServerCommand)
	}
	if !reflect.DeepEqual(cfg.ServerArgs, []string{"--verbose", "--foo"}) {
		t.Fatalf("ServerArgs = %v", cfg.ServerArgs)
	}
	if cfg.ShutdownGrace != 750*time.Millisecond {
		t.Fatalf("ShutdownGrace = %v", cfg.ShutdownGrace)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Fatalf("Level = %v", cfg.Level())
	}
}

func TestConfigLevel_Invalid(t *testing.T) {
	t.Parallel()
	if got := (Config{LogLevel: "chatty"}).Level(); got != slog.LevelWarn {
		t.Fatalf("Level = %v", got)
	}
}

func TestLoadPlan(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	full := filepath.Join(dir, "full.yaml")
	if err := os.WriteFile(full, []byte("adds:\n  - a: 2\n    b: 3\nnames: [Eve]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPlan(full)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p, Plan{Adds: []AddCall{{A: 2, B: 3}}, Names: []string{"Eve"}}) {
		t.Fatalf("plan = %+v", p)
	}

	partial := filepath.Join(dir, "partial.yaml")
	if err := os.WriteFile(partial, []byte("names: [Eve]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err = LoadPlan(partial)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p.Adds, DefaultPlan().Adds) {
		t.Fatalf("adds not defaulted: %+v", p.Adds)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("adds: {a: [}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPlan(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}
