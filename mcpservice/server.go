package mcpservice

import (
	"context"

	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/sessions"
)

// ServerOption configures a concrete ServerCapabilities implementation.
type ServerOption func(*server)

type server struct {
	info         ServerInfoProvider
	protocol     ProtocolVersionProvider
	instructions InstructionsProvider

	resources ResourcesCapabilityProvider
	tools     ToolsCapabilityProvider
	logging   LoggingCapabilityProvider
}

// NewServer builds a ServerCapabilities from providers. Unset capabilities
// are reported absent.
func NewServer(opts ...ServerOption) ServerCapabilities {
	s := &server{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithServerInfo(p ServerInfoProvider) ServerOption {
	return func(s *server) { s.info = p }
}

func WithProtocolVersion(p ProtocolVersionProvider) ServerOption {
	return func(s *server) { s.protocol = p }
}

func WithInstructions(p InstructionsProvider) ServerOption {
	return func(s *server) { s.instructions = p }
}

// WithResourcesCapability accepts any provider; *ResourcesContainer provides itself.
func WithResourcesCapability(p ResourcesCapabilityProvider) ServerOption {
	return func(s *server) { s.resources = p }
}

// WithToolsCapability accepts any provider; *ToolsContainer provides itself.
func WithToolsCapability(p ToolsCapabilityProvider) ServerOption {
	return func(s *server) { s.tools = p }
}

func WithLoggingCapability(p LoggingCapabilityProvider) ServerOption {
	return func(s *server) { s.logging = p }
}

func (s *server) GetServerInfo(ctx context.Context, session sessions.Session) (mcp.ImplementationInfo, error) {
	if s.info == nil {
		return mcp.ImplementationInfo{}, nil
	}
	info, _, err := s.info.ProvideServerInfo(ctx, session)
	return info, err
}

func (s *server) GetPreferredProtocolVersion(ctx context.Context, clientVersion string) (string, bool, error) {
	if s.protocol == nil {
		return "", false, nil
	}
	return s.protocol.ProvideProtocolVersion(ctx, clientVersion)
}

func (s *server) GetInstructions(ctx context.Context, session sessions.Session) (string, bool, error) {
	if s.instructions == nil {
		return "", false, nil
	}
	return s.instructions.ProvideInstructions(ctx, session)
}

func (s *server) GetResourcesCapability(ctx context.Context, session sessions.Session) (ResourcesCapability, bool, error) {
	if s.resources == nil {
		return nil, false, nil
	}
	return s.resources.ProvideResources(ctx, session)
}

func (s *server) GetToolsCapability(ctx context.Context, session sessions.Session) (ToolsCapability, bool, error) {
	if s.tools == nil {
		return nil, false, nil
	}
	return s.tools.ProvideTools(ctx, session)
}

func (s *server) GetLoggingCapability(ctx context.Context, session sessions.Session) (LoggingCapability, bool, error) {
	if s.logging == nil {
		return nil, false, nil
	}
	return s.logging.ProvideLogging(ctx, session)
}
