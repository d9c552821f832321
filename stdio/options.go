package stdio

import (
	"io"
	"log/slog"
)

// Option customizes a Handler.
type Option func(*Handler)

// WithIO sets the stream the handler reads frames from and the stream it
// writes frames to. A nil argument keeps the current stream.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger sets the logger. Handlers write diagnostics only to it, never
// to the protocol stream.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.l = l
		}
	}
}

// WithUserProvider sets how the peer is identified on initialize.
func WithUserProvider(up UserProvider) Option {
	return func(h *Handler) {
		if up != nil {
			h.userProvider = up
		}
	}
}

// WithSessionIDs replaces the random session ID generator.
func WithSessionIDs(next func() string) Option {
	return func(h *Handler) {
		if next != nil {
			h.newSessionID = next
		}
	}
}

// WithMaxMessageSize bounds a single inbound frame. Longer lines end Serve
// with bufio.ErrTooLong.
func WithMaxMessageSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxMessageSize = n
		}
	}
}
