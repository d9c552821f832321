package mcpclient

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
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ggoodman/mcp-greeter-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-greeter-go/internal/outbound"
	"github.com/ggoodman/mcp-greeter-go/mcp"
)

// maxMessageSize bounds a single line read from the server.
const maxMessageSize = 10 << 20

// ErrClosed is returned by calls on a closed session or after the server's
// stdout has closed.
var ErrClosed = errors.New("mcpclient: session closed")

// Session is an initialized MCP session with a child process.
type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	log   *slog.Logger
	grace time.Duration
	cfg   config

	d       *outbound.Dispatcher
	writeMu sync.Mutex

	initRes *mcp.InitializeResult

	exited  chan struct{}
	waitErr error

	closeOnce sync.Once
	killed    bool
}

// pipeTransport writes outbound frames to the child's stdin.
type pipeTransport struct{ s *Session }

func (t pipeTransport) SendRequest(_ context.Context, req *jsonrpc.Request) error {
	return t.s.write(req)
}

func (t pipeTransport) SendCancelled(_ context.Context, id *jsonrpc.RequestID, reason string) error {
	note, err := jsonrpc.NewNotification(string(mcp.CancelledNotificationMethod), map[string]any{"requestId": id, "reason": reason})
	if err != nil {
		return err
	}
	return t.s.write(note)
}

// Connect starts cmd with piped standard streams and performs the MCP
// initialize handshake. cmd must not have been started and must not have
// Stdin, Stdout or Stderr assigned. If anything fails after the process has
// started, the process is torn down before Connect returns.
func Connect(ctx context.Context, cmd *exec.Cmd, opts ...Option) (*Session, error) {
	cfg := config{
		log:             slog.Default(),
		clientInfo:      mcp.ImplementationInfo{Name: "mcp-greeter-client", Version: "0.1.0"},
		protocolVersion: mcp.LatestProtocolVersion,
		grace:           defaultShutdownGrace,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.log.With(slog.String("server", cmd.Path))

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW
	if cmd.WaitDelay == 0 {
		// Bounds Wait when a grandchild (for example under `go run`) keeps
		// the output pipes open after the direct child has exited.
		cmd.WaitDelay = cfg.grace
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		log.ErrorContext(ctx, "mcpclient.connect.fail", slog.String("err", err.Error()))
		return nil, fmt.Errorf("start server: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		log:    log.With(slog.Int("pid", cmd.Process.Pid)),
		grace:  cfg.grace,
		cfg:    cfg,
		exited: make(chan struct{}),
	}
	s.d = outbound.New(pipeTransport{s: s})

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		s.readLoop(outR)
	}()
	go s.forwardStderr(errR)
	go func() {
		s.waitErr = cmd.Wait()
		_ = outW.Close()
		_ = errW.Close()
		<-readerDone
		close(s.exited)
	}()

	if err := s.initialize(ctx); err != nil {
		s.log.ErrorContext(ctx, "mcpclient.connect.fail", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		_ = s.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}

	s.log.InfoContext(ctx, "mcpclient.connect.ok",
		slog.String("server_name", s.initRes.ServerInfo.Name),
		slog.String("protocol_version", s.initRes.ProtocolVersion),
		slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	return s, nil
}

func (s *Session) initialize(ctx context.Context) error {
	var res mcp.InitializeResult
	err := s.call(ctx, mcp.InitializeMethod, &mcp.InitializeRequest{
		ProtocolVersion: s.cfg.protocolVersion,
		ClientInfo:      s.cfg.clientInfo,
	}, &res)
	if err != nil {
		return err
	}
	if !mcp.IsSupportedProtocolVersion(res.ProtocolVersion) {
		return fmt.Errorf("server negotiated unsupported protocol version %q", res.ProtocolVersion)
	}
	s.initRes = &res
	return s.d.Notify(ctx, string(mcp.InitializedNotificationMethod), nil)
}

// InitializeResult returns the server's answer to initialize.
func (s *Session) InitializeResult() *mcp.InitializeResult { return s.initRes }

// Exited reports whether the child process has terminated.
func (s *Session) Exited() bool {
	select {
	case <-s.exited:
		return true
	default:
		return false
	}
}

// Close shuts the session down. It closes the child's stdin, waits up to the
// shutdown grace period for the child to exit and kills it otherwise. Close
// always waits for the child to be reaped and is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.d.Close(ErrClosed)
		_ = s.stdin.Close()

		timer := time.NewTimer(s.grace)
		defer timer.Stop()
		select {
		case <-s.exited:
		case <-timer.C:
			s.log.Warn("mcpclient.close.kill", slog.Duration("grace", s.grace))
			s.killed = true
			if kerr := s.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				err = fmt.Errorf("kill server: %w", kerr)
			}
			<-s.exited
		}

		attrs := []any{slog.Bool("killed", s.killed)}
		if s.waitErr != nil {
			attrs = append(attrs, slog.String("exit", s.waitErr.Error()))
		}
		s.log.Info("mcpclient.close.ok", attrs...)
	})
	return err
}

func (s *Session) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	b = append(b, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.stdin.Write(b); err != nil {
		return fmt.Errorf("%w: write to server: %v", ErrClosed, err)
	}
	return nil
}

func (s *Session) readLoop(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg jsonrpc.AnyMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			s.log.Warn("mcpclient.read.invalid", slog.String("err", err.Error()))
			continue
		}
		switch msg.Type() {
		case jsonrpc.TypeResponse:
			if !s.d.OnResponse(msg.AsResponse()) {
				s.log.Debug("mcpclient.read.unmatched_response", slog.String("id", msg.ID.String()))
			}
		case jsonrpc.TypeNotification:
			s.handleNotification(msg.AsRequest())
		case jsonrpc.TypeRequest:
			s.handleServerRequest(msg.AsRequest())
		}
	}

	reason := ErrClosed
	if err := sc.Err(); err != nil {
		s.log.Warn("mcpclient.read.fail", slog.String("err", err.Error()))
		reason = fmt.Errorf("%w: %v", ErrClosed, err)
	}
	s.d.Close(reason)
}

func (s *Session) handleNotification(note *jsonrpc.Request) {
	switch note.Method {
	case string(mcp.ToolsListChangedNotificationMethod), string(mcp.ResourcesListChangedNotificationMethod):
		s.log.Debug("mcpclient.notification.list_changed", slog.String("method", note.Method))
		if s.cfg.onListChanged != nil {
			s.cfg.onListChanged(note.Method)
		}
	default:
		s.d.OnNotification(note)
	}
}

// handleServerRequest answers requests initiated by the server. Only ping
// is supported since this client advertises no capabilities.
func (s *Session) handleServerRequest(req *jsonrpc.Request) {
	var resp *jsonrpc.Response
	if req.Method == string(mcp.PingMethod) {
		resp, _ = jsonrpc.NewResultResponse(req.ID, mcp.EmptyResult{})
	} else {
		resp = jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "method not found", nil)
	}
	if err := s.write(resp); err != nil {
		s.log.Debug("mcpclient.reply.fail", slog.String("method", req.Method), slog.String("err", err.Error()))
	}
}

func (s *Session) forwardStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			s.log.Debug("mcpclient.server.stderr", slog.String("line", line))
		}
	}
	// Keep draining so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}
