package mcpservice

import (
	"context"

	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/sessions"
)

// ServerCapabilities is the surface a transport consumes. Discovery methods
// return (cap, ok, err): ok == false means unsupported for the session and err
// is reserved for failures while deciding.
type ServerCapabilities interface {
	// GetServerInfo returns the implementation info surfaced in initialize.
	GetServerInfo(ctx context.Context, session sessions.Session) (mcp.ImplementationInfo, error)

	// GetPreferredProtocolVersion returns the server's preferred protocol
	// version given the version the client requested. Selection happens
	// before the session exists. If ok is false the transport negotiates on
	// its own.
	GetPreferredProtocolVersion(ctx context.Context, clientVersion string) (version string, ok bool, err error)

	// GetInstructions returns optional human-readable instructions for the
	// initialize result.
	GetInstructions(ctx context.Context, session sessions.Session) (instructions string, ok bool, err error)

	GetResourcesCapability(ctx context.Context, session sessions.Session) (cap ResourcesCapability, ok bool, err error)
	GetToolsCapability(ctx context.Context, session sessions.Session) (cap ToolsCapability, ok bool, err error)
	GetLoggingCapability(ctx context.Context, session sessions.Session) (cap LoggingCapability, ok bool, err error)
}

// ResourcesCapability defines the resource operations supported by the
// server. All methods MUST be safe for concurrent use.
type ResourcesCapability interface {
	// ListResources returns a page of concrete resources. A nil cursor
	// requests the first page.
	ListResources(ctx context.Context, session sessions.Session, cursor *string) (Page[mcp.Resource], error)

	// ListResourceTemplates returns a page of resource templates.
	ListResourceTemplates(ctx context.Context, session sessions.Session, cursor *string) (Page[mcp.ResourceTemplate], error)

	// ReadResource returns the contents for a URI. Unknown URIs MUST yield an
	// error wrapping ErrResourceNotFound so transports can map it.
	ReadResource(ctx context.Context, session sessions.Session, uri string) ([]mcp.ResourceContents, error)

	// GetListChangedCapability reports whether list-changed notifications
	// are available.
	GetListChangedCapability(ctx context.Context, session sessions.Session) (cap ResourceListChangedCapability, ok bool, err error)
}

// NotifyResourceChangeFunc is invoked when the resource or template set changes.
type NotifyResourceChangeFunc func(ctx context.Context, session sessions.Session)

// ResourceListChangedCapability delivers list-changed callbacks until ctx is done.
type ResourceListChangedCapability interface {
	Register(ctx context.Context, session sessions.Session, fn NotifyResourceChangeFunc) (ok bool, err error)
}

// ToolsCapability defines the server's tools surface area. All methods MUST
// be safe for concurrent use.
type ToolsCapability interface {
	// ListTools returns a page of tools. A nil cursor requests the first page.
	ListTools(ctx context.Context, session sessions.Session, cursor *string) (Page[mcp.Tool], error)

	// CallTool invokes a named tool. Unknown tools yield an error wrapping
	// ErrToolNotFound; invalid input is reported in band with IsError.
	CallTool(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)

	GetListChangedCapability(ctx context.Context, session sessions.Session) (cap ToolListChangedCapability, ok bool, err error)
}

// NotifyToolsListChangedFunc is invoked when the tool set changes.
type NotifyToolsListChangedFunc func(ctx context.Context, session sessions.Session)

// ToolListChangedCapability delivers list-changed callbacks until ctx is done.
type ToolListChangedCapability interface {
	Register(ctx context.Context, session sessions.Session, fn NotifyToolsListChangedFunc) (ok bool, err error)
}

// LoggingCapability lets the client adjust the server's log level.
type LoggingCapability interface {
	SetLevel(ctx context.Context, session sessions.Session, level mcp.LoggingLevel) error
}
