package demo

import (
	"log/slog"

	"github.com/ggoodman/mcp-greeter-go/mcpclient"
)

type options struct {
	plan Plan
	log  *slog.Logger

	// wrap intercepts the connected session in RunSession; used by tests.
	wrap func(*mcpclient.Session) Session
}

// Option configures the demos.
type Option func(*options)

// WithPlan overrides DefaultPlan.
func WithPlan(p Plan) Option {
	return func(o *options) { o.plan = p }
}

// WithLogger sets the logger for diagnostic events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{plan: DefaultPlan(), log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
