package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ggoodman/mcp-greeter-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-greeter-go/internal/logctx"
	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/mcpservice"
	"github.com/ggoodman/mcp-greeter-go/sessions"
	"github.com/google/uuid"
)

// maxMessageSize is the default bound on a single newline-delimited frame.
const maxMessageSize = 10 << 20

var (
	// ErrAlreadyServing is returned when Serve is called more than once.
	ErrAlreadyServing = errors.New("stdio: handler already serving")

	errCancelledByClient = errors.New("cancelled by client")
)

// Handler is a single-connection stdio transport that reads JSON-RPC messages
// from an io.Reader and writes responses to an io.Writer. By default, it uses
// os.Stdin and os.Stdout. It identifies the peer using a UserProvider, which
// defaults to the current OS user.
//
// The handler is transport-only; it delegates all MCP semantics to the provided
// mcpservice.ServerCapabilities.
type Handler struct {
	srv          mcpservice.ServerCapabilities
	r            io.Reader
	w            io.Writer
	l            *slog.Logger
	userProvider UserProvider

	newSessionID   func() string
	maxMessageSize int

	serving atomic.Bool
	writeMu sync.Mutex

	mu       sync.Mutex
	session  *sessions.Local
	inflight map[string]context.CancelCauseFunc
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(srv mcpservice.ServerCapabilities, opts ...Option) *Handler {
	h := &Handler{
		srv:            srv,
		r:              os.Stdin,
		w:              os.Stdout,
		l:              slog.Default(),
		userProvider:   OSUserProvider{},
		newSessionID:   uuid.NewString,
		maxMessageSize: maxMessageSize,
		inflight:       make(map[string]context.CancelCauseFunc),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve runs the stdio event loop until EOF on the reader or the context is
// canceled. It may be called at most once per Handler. On EOF, in-flight
// requests are allowed to finish and Serve returns nil; on cancellation it
// returns ctx.Err().
func (h *Handler) Serve(ctx context.Context) error {
	if !h.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(h.r)
		sc.Buffer(make([]byte, 0, 64*1024), h.maxMessageSize)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- bytes.Clone(line):
			case <-runCtx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	var wg sync.WaitGroup
	h.l.InfoContext(ctx, "stdio.serve.start")

	for {
		select {
		case <-runCtx.Done():
			cancel()
			wg.Wait()
			h.closeSession()
			h.l.InfoContext(ctx, "stdio.serve.stop", slog.String("reason", ctx.Err().Error()))
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				wg.Wait()
				h.closeSession()
				var err error
				select {
				case err = <-readErr:
				default:
				}
				if err != nil {
					h.l.ErrorContext(ctx, "stdio.serve.read_fail", slog.String("err", err.Error()))
					return fmt.Errorf("read stdin: %w", err)
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				h.l.InfoContext(ctx, "stdio.serve.stop", slog.String("reason", "eof"))
				return nil
			}
			h.handleLine(runCtx, &wg, line)
		}
	}
}

func (h *Handler) handleLine(ctx context.Context, wg *sync.WaitGroup, line []byte) {
	var msg jsonrpc.AnyMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		code, text := jsonrpc.ErrorCodeInvalidRequest, "invalid request"
		if !json.Valid(line) {
			code, text = jsonrpc.ErrorCodeParseError, "parse error"
		}
		h.l.InfoContext(ctx, "stdio.message.invalid", slog.String("err", err.Error()))
		h.writeMessage(ctx, jsonrpc.NewErrorResponse(nil, code, text, nil))
		return
	}

	switch msg.Type() {
	case jsonrpc.TypeResponse:
		// This server never issues requests of its own.
		h.l.DebugContext(ctx, "stdio.response.unexpected", slog.String("id", msg.ID.String()))
	case jsonrpc.TypeNotification:
		h.handleNotification(ctx, msg.AsRequest())
	case jsonrpc.TypeRequest:
		req := msg.AsRequest()
		ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{Method: req.Method, ID: req.ID.String(), Type: jsonrpc.TypeRequest})

		switch req.Method {
		case string(mcp.InitializeMethod):
			// Synchronous so requests pipelined behind initialize see the session.
			h.writeMessage(ctx, h.handleInitialize(ctx, req))
			return
		case string(mcp.PingMethod):
			resp, _ := jsonrpc.NewResultResponse(req.ID, mcp.EmptyResult{})
			h.writeMessage(ctx, resp)
			return
		}

		sess := h.currentSession()
		if sess == nil {
			h.l.InfoContext(ctx, "stdio.handle_request.uninitialized")
			h.writeMessage(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session not initialized", nil))
			return
		}

		key := req.ID.String()
		reqCtx, reqCancel := context.WithCancelCause(h.sessionContext(ctx, sess))
		h.mu.Lock()
		if _, dup := h.inflight[key]; dup {
			h.mu.Unlock()
			reqCancel(nil)
			h.l.InfoContext(ctx, "stdio.handle_request.duplicate_id")
			h.writeMessage(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "duplicate request id", nil))
			return
		}
		h.inflight[key] = reqCancel
		h.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				h.mu.Lock()
				delete(h.inflight, key)
				h.mu.Unlock()
				reqCancel(nil)
			}()

			resp := h.handleRequest(reqCtx, sess, req)
			if errors.Is(context.Cause(reqCtx), errCancelledByClient) {
				// The peer has abandoned this request; no response is sent.
				return
			}
			h.writeMessage(ctx, resp)
		}()
	}
}

func (h *Handler) handleNotification(ctx context.Context, note *jsonrpc.Request) {
	switch note.Method {
	case string(mcp.InitializedNotificationMethod):
		sess := h.currentSession()
		if sess == nil {
			h.l.InfoContext(ctx, "stdio.initialized.premature")
			return
		}
		if !sess.Open() {
			return
		}
		h.registerListChanged(h.sessionContext(ctx, sess), sess)
		h.l.InfoContext(ctx, "stdio.session.open", slog.String("session_id", sess.SessionID()))
	case string(mcp.CancelledNotificationMethod):
		var p mcp.CancelledNotification
		if err := json.Unmarshal(note.Params, &p); err != nil {
			h.l.InfoContext(ctx, "stdio.cancelled.invalid", slog.String("err", err.Error()))
			return
		}
		var id jsonrpc.RequestID
		if err := json.Unmarshal(p.RequestID, &id); err != nil {
			h.l.InfoContext(ctx, "stdio.cancelled.invalid", slog.String("err", err.Error()))
			return
		}
		h.mu.Lock()
		cancel, ok := h.inflight[id.String()]
		h.mu.Unlock()
		if ok {
			cancel(errCancelledByClient)
			h.l.InfoContext(ctx, "stdio.request.cancelled", slog.String("id", id.String()), slog.String("reason", p.Reason))
		}
	default:
		h.l.DebugContext(ctx, "stdio.notification.ignored", slog.String("method", note.Method))
	}
}

// registerListChanged forwards tool and resource list changes to the client
// until ctx is done.
func (h *Handler) registerListChanged(ctx context.Context, sess sessions.Session) {
	if toolsCap, ok, err := h.srv.GetToolsCapability(ctx, sess); err == nil && ok && toolsCap != nil {
		if lc, ok, err := toolsCap.GetListChangedCapability(ctx, sess); err == nil && ok && lc != nil {
			_, _ = lc.Register(ctx, sess, func(ctx context.Context, _ sessions.Session) {
				h.notify(ctx, string(mcp.ToolsListChangedNotificationMethod), nil)
			})
		}
	}
	if resCap, ok, err := h.srv.GetResourcesCapability(ctx, sess); err == nil && ok && resCap != nil {
		if lc, ok, err := resCap.GetListChangedCapability(ctx, sess); err == nil && ok && lc != nil {
			_, _ = lc.Register(ctx, sess, func(ctx context.Context, _ sessions.Session) {
				h.notify(ctx, string(mcp.ResourcesListChangedNotificationMethod), nil)
			})
		}
	}
}

func (h *Handler) currentSession() *sessions.Local {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

func (h *Handler) closeSession() {
	h.mu.Lock()
	sess := h.session
	h.mu.Unlock()
	if sess != nil {
		sess.Close()
	}
}

func (h *Handler) sessionContext(ctx context.Context, sess sessions.Session) context.Context {
	return logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID:       sess.SessionID(),
		UserID:          sess.UserID(),
		ProtocolVersion: sess.ProtocolVersion(),
		ClientName:      sess.ClientInfo().Name,
	})
}

func (h *Handler) notify(ctx context.Context, method string, params any) {
	note, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		h.l.ErrorContext(ctx, "stdio.notify.encode_fail", slog.String("method", method), slog.String("err", err.Error()))
		return
	}
	h.writeMessage(ctx, note)
}

// writeMessage encodes v as one line. Writes are serialized across goroutines.
func (h *Handler) writeMessage(ctx context.Context, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.l.ErrorContext(ctx, "stdio.write.encode_fail", slog.String("err", err.Error()))
		return
	}
	b = append(b, '\n')

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if _, err := h.w.Write(b); err != nil {
		h.l.ErrorContext(ctx, "stdio.write.fail", slog.String("err", err.Error()))
	}
}
