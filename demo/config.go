package demo

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config controls how RunSession launches the server. Defaults are provided
// via envdecode struct tags.
type Config struct {
	ServerCommand string        `env:"MCP_SERVER_COMMAND,default=go"`
	ServerArgs    []string      `env:"MCP_SERVER_ARGS,default=run;./cmd/greeter-server"`
	ClientName    string        `env:"MCP_CLIENT_NAME,default=kaito-mcp-client"`
	ShutdownGrace time.Duration `env:"MCP_SHUTDOWN_GRACE,default=2s"`
	LogLevel      string        `env:"LOG_LEVEL,default=warn"`
	// PlanPath optionally points at a YAML file overriding DefaultPlan.
	PlanPath string `env:"MCP_DEMO_PLAN"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

// Level parses LogLevel, defaulting to warn.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelWarn
	}
	return lvl
}
