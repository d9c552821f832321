// Package outbound correlates outgoing JSON-RPC requests with the responses
// that arrive later on a transport's read loop.
package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ggoodman/mcp-greeter-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-greeter-go/mcp"
)

// Transport abstracts how requests and cancellations reach the peer.
type Transport interface {
	// SendRequest emits the request. The dispatcher registers the pending call
	// before SendRequest runs so a fast response is never missed.
	SendRequest(ctx context.Context, req *jsonrpc.Request) error
	// SendCancelled emits notifications/cancelled for the given request id.
	SendCancelled(ctx context.Context, id *jsonrpc.RequestID, reason string) error
}

var (
	// ErrDispatcherClosed indicates the dispatcher is closed.
	ErrDispatcherClosed = errors.New("dispatcher closed")
	// ErrRemoteCancelled indicates the peer cancelled the request.
	ErrRemoteCancelled = errors.New("remote cancelled")
)

// ProgressFunc receives notifications/progress updates from the peer.
type ProgressFunc func(p mcp.ProgressNotificationParams)

type pendingCall struct {
	respCh chan *jsonrpc.Response
	errCh  chan error
}

// Dispatcher allocates request IDs, tracks calls awaiting a response and
// routes responses back to their callers. It is transport-agnostic and safe
// for concurrent use.
type Dispatcher struct {
	t Transport

	mu      sync.Mutex
	pending map[string]*pendingCall // id.String() -> call

	nextID atomic.Int64

	onProgress ProgressFunc

	closed   atomic.Bool
	closeErr error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithProgressFunc registers a callback for progress notifications.
func WithProgressFunc(fn ProgressFunc) Option {
	return func(d *Dispatcher) { d.onProgress = fn }
}

// New constructs a Dispatcher using the provided transport.
func New(t Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{t: t, pending: make(map[string]*pendingCall)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) closedErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closeErr != nil {
		return d.closeErr
	}
	return ErrDispatcherClosed
}

// Call sends a JSON-RPC request and waits for a response or context
// cancellation. A JSON-RPC error response is returned as a response, not as
// an error; use Response.DecodeResult to surface it.
func (d *Dispatcher) Call(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	if d.closed.Load() {
		return nil, d.closedErr()
	}

	id := jsonrpc.NewRequestID(d.nextID.Add(1))
	key := id.String()

	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	pc := &pendingCall{respCh: make(chan *jsonrpc.Response, 1), errCh: make(chan error, 1)}
	d.mu.Lock()
	if d.closed.Load() {
		d.mu.Unlock()
		return nil, d.closedErr()
	}
	d.pending[key] = pc
	d.mu.Unlock()

	if err := d.t.SendRequest(ctx, req); err != nil {
		d.forget(key)
		return nil, err
	}

	select {
	case resp := <-pc.respCh:
		return resp, nil
	case err := <-pc.errCh:
		return nil, err
	case <-ctx.Done():
		d.forget(key)
		_ = d.t.SendCancelled(context.WithoutCancel(ctx), id, context.Cause(ctx).Error())
		return nil, ctx.Err()
	}
}

// Notify sends a notification; no response is expected.
func (d *Dispatcher) Notify(ctx context.Context, method string, params any) error {
	if d.closed.Load() {
		return d.closedErr()
	}
	note, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return err
	}
	return d.t.SendRequest(ctx, note)
}

func (d *Dispatcher) forget(key string) {
	d.mu.Lock()
	delete(d.pending, key)
	d.mu.Unlock()
}

// OnResponse delivers an incoming response to a waiting call. Unmatched
// responses are ignored and reported as false.
func (d *Dispatcher) OnResponse(resp *jsonrpc.Response) bool {
	if resp == nil || resp.ID.IsNil() {
		return false
	}
	key := resp.ID.String()
	d.mu.Lock()
	pc, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	d.mu.Unlock()
	if ok {
		pc.respCh <- resp
	}
	return ok
}

// OnNotification processes peer notifications relevant to outbound calls:
// cancellations fail the matching call and progress updates are forwarded
// to the progress callback.
func (d *Dispatcher) OnNotification(note *jsonrpc.Request) {
	switch note.Method {
	case string(mcp.CancelledNotificationMethod):
		var p mcp.CancelledNotification
		if err := json.Unmarshal(note.Params, &p); err != nil {
			return
		}
		var id jsonrpc.RequestID
		if err := json.Unmarshal(p.RequestID, &id); err != nil {
			return
		}
		key := id.String()
		d.mu.Lock()
		pc, ok := d.pending[key]
		if ok {
			delete(d.pending, key)
		}
		d.mu.Unlock()
		if ok {
			pc.errCh <- ErrRemoteCancelled
		}
	case string(mcp.ProgressNotificationMethod):
		if d.onProgress == nil {
			return
		}
		var p mcp.ProgressNotificationParams
		if err := json.Unmarshal(note.Params, &p); err != nil {
			return
		}
		d.onProgress(p)
	}
}

// Pending returns the number of calls awaiting a response.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Close fails all pending calls with err and prevents new calls.
func (d *Dispatcher) Close(err error) {
	if err == nil {
		err = ErrDispatcherClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	d.closeErr = err
	for key, pc := range d.pending {
		delete(d.pending, key)
		pc.errCh <- err
	}
}
