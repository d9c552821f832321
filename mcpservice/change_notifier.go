package mcpservice

import (
	"context"
	"sync"

	"github.com/ggoodman/mcp-greeter-go/sessions"
)

// ChangeNotifier is a small in-process pub-sub for "something changed"
// signals. Containers notify it on mutation so transports can emit
// list_changed notifications. The zero value is ready to use.
type ChangeNotifier struct {
	mu          sync.RWMutex
	subscribers []chan struct{}
	closed      bool
}

// ChangeSubscriber is implemented by anything that hands out change channels.
type ChangeSubscriber interface {
	Subscriber() <-chan struct{}
}

// Notify signals every subscriber without blocking. Signals coalesce: a
// subscriber that has not drained its previous signal sees just one.
func (cn *ChangeNotifier) Notify(context.Context) error {
	cn.mu.RLock()
	defer cn.mu.RUnlock()

	if cn.closed {
		return nil
	}
	for _, ch := range cn.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Close closes every subscriber channel. Later subscribers receive a closed channel.
func (cn *ChangeNotifier) Close() {
	cn.mu.Lock()
	if cn.closed {
		cn.mu.Unlock()
		return
	}
	cn.closed = true
	subs := cn.subscribers
	cn.subscribers = nil
	cn.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}

// Subscriber returns a channel (buffer 1) that receives a signal whenever
// Notify is called.
func (cn *ChangeNotifier) Subscriber() <-chan struct{} {
	cn.mu.Lock()
	defer cn.mu.Unlock()

	ch := make(chan struct{}, 1)
	if cn.closed {
		close(ch)
		return ch
	}
	cn.subscribers = append(cn.subscribers, ch)
	return ch
}

// forwardChanges calls fn for each signal on sub's channel until ctx is done
// or the channel closes.
func forwardChanges(ctx context.Context, sub ChangeSubscriber, fn func()) {
	ch := sub.Subscriber()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				fn()
			}
		}
	}()
}

type toolsListChangedFromSubscriber struct{ sub ChangeSubscriber }

func (t toolsListChangedFromSubscriber) Register(ctx context.Context, session sessions.Session, fn NotifyToolsListChangedFunc) (bool, error) {
	if t.sub == nil || fn == nil {
		return false, nil
	}
	forwardChanges(ctx, t.sub, func() { fn(ctx, session) })
	return true, nil
}

type resourceListChangedFromSubscriber struct{ sub ChangeSubscriber }

func (r resourceListChangedFromSubscriber) Register(ctx context.Context, session sessions.Session, fn NotifyResourceChangeFunc) (bool, error) {
	if r.sub == nil || fn == nil {
		return false, nil
	}
	forwardChanges(ctx, r.sub, func() { fn(ctx, session) })
	return true, nil
}
