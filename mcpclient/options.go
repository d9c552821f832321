package mcpclient

import (
	"log/slog"
	"time"

	"github.com/ggoodman/mcp-greeter-go/mcp"
)

const defaultShutdownGrace = 2 * time.Second

type config struct {
	log             *slog.Logger
	clientInfo      mcp.ImplementationInfo
	protocolVersion string
	grace           time.Duration
	onListChanged   func(method string)
}

// Option configures Connect.
type Option func(*config)

// WithLogger sets the logger; the child's stderr is forwarded to it at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClientInfo sets the implementation info sent in initialize.
func WithClientInfo(info mcp.ImplementationInfo) Option {
	return func(c *config) { c.clientInfo = info }
}

// WithProtocolVersion sets the protocol version requested in initialize.
func WithProtocolVersion(v string) Option {
	return func(c *config) {
		if v != "" {
			c.protocolVersion = v
		}
	}
}

// WithShutdownGrace bounds how long Close waits for the child to exit after
// closing its stdin before killing it.
func WithShutdownGrace(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.grace = d
		}
	}
}

// WithListChangedHandler registers a callback for the server's
// notifications/*/list_changed messages. It runs on the read loop and must
// not block.
func WithListChangedHandler(fn func(method string)) Option {
	return func(c *config) { c.onListChanged = fn }
}
