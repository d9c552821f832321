package sessions

import (
	"sync"
	"time"

	"github.com/ggoodman/mcp-greeter-go/mcp"
)

// SessionState is the lifecycle state of a session.
type SessionState string

const (
	SessionStatePending SessionState = "pending"
	SessionStateOpen    SessionState = "open"
	SessionStateClosed  SessionState = "closed"
)

// Session is the per-connection view exposed to capability code.
type Session interface {
	SessionID() string
	UserID() string
	ProtocolVersion() string
	ClientInfo() mcp.ImplementationInfo
	ClientCapabilities() mcp.ClientCapabilities
	State() SessionState
}

// Metadata holds the immutable facts recorded when a session is created.
type Metadata struct {
	SessionID          string
	UserID             string
	ProtocolVersion    string
	ClientInfo         mcp.ImplementationInfo
	ClientCapabilities mcp.ClientCapabilities
}

// Local is an in-process Session. Transports own its state transitions.
type Local struct {
	meta Metadata

	mu       sync.RWMutex
	state    SessionState
	openedAt time.Time
	closedAt time.Time
}

var _ Session = (*Local)(nil)

// New returns a pending session for the given metadata.
func New(meta Metadata) *Local {
	return &Local{meta: meta, state: SessionStatePending}
}

func (s *Local) SessionID() string                          { return s.meta.SessionID }
func (s *Local) UserID() string                             { return s.meta.UserID }
func (s *Local) ProtocolVersion() string                    { return s.meta.ProtocolVersion }
func (s *Local) ClientInfo() mcp.ImplementationInfo         { return s.meta.ClientInfo }
func (s *Local) ClientCapabilities() mcp.ClientCapabilities { return s.meta.ClientCapabilities }

func (s *Local) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Open marks the session open. It reports false if the session was not
// pending; repeated calls are harmless.
func (s *Local) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionStatePending {
		return false
	}
	s.state = SessionStateOpen
	s.openedAt = time.Now().UTC()
	return true
}

// Close marks the session closed. It is idempotent.
func (s *Local) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionStateClosed {
		return
	}
	s.state = SessionStateClosed
	s.closedAt = time.Now().UTC()
}

// OpenedAt returns when Open succeeded, or the zero time.
func (s *Local) OpenedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openedAt
}
