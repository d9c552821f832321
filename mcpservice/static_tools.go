package mcpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/sessions"
	"github.com/invopop/jsonschema"
)

// ErrToolNotFound is wrapped by CallTool when no tool has the requested name.
var ErrToolNotFound = errors.New("tool not found")

// ToolHandler is the function signature used to handle a tool invocation.
type ToolHandler func(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)

// StaticTool pairs an MCP tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    ToolHandler
}

// ToolRequest is the container for decoded tool input of type A.
type ToolRequest[A any] struct {
	name string
	raw  json.RawMessage
	args A
}

func (r *ToolRequest[A]) Name() string                  { return r.name }
func (r *ToolRequest[A]) RawArguments() json.RawMessage { return r.raw }
func (r *ToolRequest[A]) Args() A                       { return r.args }

// ToolOption configures NewTool behavior.
type ToolOption func(*toolConfig)

type toolConfig struct {
	title                     string
	description               string
	allowAdditionalProperties bool
}

// WithToolTitle sets the optional display title.
func WithToolTitle(title string) ToolOption {
	return func(c *toolConfig) { c.title = title }
}

// WithToolDescription sets the tool description used in listings.
func WithToolDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// WithToolAllowAdditionalProperties controls whether unknown argument fields
// are accepted. When false (default) the schema sets additionalProperties=false
// and decoding rejects unknown fields.
func WithToolAllowAdditionalProperties(allow bool) ToolOption {
	return func(c *toolConfig) { c.allowAdditionalProperties = allow }
}

// NewTool constructs a StaticTool whose input schema is reflected from A and
// whose handler composes its result through a ToolResponseWriter. Arguments
// that fail to decode produce an in-band error result; fn is not called.
func NewTool[A any](name string, fn func(ctx context.Context, session sessions.Session, w ToolResponseWriter, r *ToolRequest[A]) error, opts ...ToolOption) StaticTool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	desc := mcp.Tool{
		Name:        name,
		Title:       cfg.title,
		Description: cfg.description,
		InputSchema: reflectToMCPInputSchema[A](cfg.allowAdditionalProperties),
	}

	handler := func(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
		var a A
		if err := decodeArguments(req.Arguments, &a, cfg.allowAdditionalProperties); err != nil {
			return Errorf("invalid arguments: %v", err), nil
		}
		if missing := missingRequired(req.Arguments, desc.InputSchema.Required); len(missing) > 0 {
			return Errorf("invalid arguments: missing required %v", missing), nil
		}
		w := newToolResponseWriter(ctx)
		r := &ToolRequest[A]{name: req.Name, raw: req.Arguments, args: a}
		if err := fn(ctx, session, w, r); err != nil {
			return nil, err
		}
		return w.Result(), nil
	}

	return StaticTool{Descriptor: desc, Handler: handler}
}

func decodeArguments(raw json.RawMessage, v any, lenient bool) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if lenient {
		return json.Unmarshal(raw, v)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// missingRequired lists required property names absent from raw.
func missingRequired(raw json.RawMessage, required []string) []string {
	if len(required) == 0 {
		return nil
	}
	var present map[string]json.RawMessage
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &present)
	}
	var missing []string
	for _, name := range required {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// reflectToMCPInputSchema reflects A with invopop/jsonschema and converts the
// result to the simplified mcp.ToolInputSchema. Non-object types map to an
// empty object schema.
func reflectToMCPInputSchema[A any](allowAdditional bool) mcp.ToolInputSchema {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: allowAdditional,
	}
	s := r.Reflect(new(A))

	out := mcp.ToolInputSchema{
		Type:                 "object",
		Properties:           map[string]mcp.SchemaProperty{},
		AdditionalProperties: allowAdditional,
	}
	if s == nil || s.Type != "object" {
		return out
	}
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			out.Properties[el.Key] = toMCPProperty(el.Value)
		}
	}
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}
	return out
}

// toMCPProperty recursively maps a jsonschema.Schema to mcp.SchemaProperty.
func toMCPProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Title:       s.Title,
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toMCPProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toMCPProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}

// ToolsContainer owns a mutable, threadsafe set of tool descriptors and
// handlers and implements ToolsCapability over them. Mutations signal the
// embedded ChangeNotifier, so the container always advertises listChanged.
type ToolsContainer struct {
	mu       sync.RWMutex
	tools    []mcp.Tool
	handlers map[string]ToolHandler

	notifier ChangeNotifier

	pageSize int
}

// NewToolsContainer constructs a ToolsContainer holding defs.
func NewToolsContainer(defs ...StaticTool) *ToolsContainer {
	st := &ToolsContainer{pageSize: defaultPageSize}
	st.Replace(context.Background(), defs...)
	return st
}

// ProvideTools makes *ToolsContainer a ToolsCapabilityProvider. An empty
// container is still a present capability.
func (st *ToolsContainer) ProvideTools(context.Context, sessions.Session) (ToolsCapability, bool, error) {
	return st, true, nil
}

// SetPageSize sets the pagination size used by ListTools. Non-positive values are ignored.
func (st *ToolsContainer) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	st.mu.Lock()
	st.pageSize = n
	st.mu.Unlock()
}

// Snapshot returns a copy of the current tool descriptors in registration order.
func (st *ToolsContainer) Snapshot() []mcp.Tool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]mcp.Tool, len(st.tools))
	copy(out, st.tools)
	return out
}

// Replace atomically replaces the entire tool set. On duplicate names the
// last definition wins.
func (st *ToolsContainer) Replace(ctx context.Context, defs ...StaticTool) {
	st.mu.Lock()
	st.tools = make([]mcp.Tool, 0, len(defs))
	st.handlers = make(map[string]ToolHandler, len(defs))
	index := make(map[string]int, len(defs))
	for _, d := range defs {
		name := d.Descriptor.Name
		if i, dup := index[name]; dup {
			st.tools[i] = d.Descriptor
		} else {
			index[name] = len(st.tools)
			st.tools = append(st.tools, d.Descriptor)
		}
		if d.Handler != nil {
			st.handlers[name] = d.Handler
		} else {
			delete(st.handlers, name)
		}
	}
	st.mu.Unlock()
	_ = st.notifier.Notify(ctx)
}

// Add registers a tool unless one with the same name exists. Returns true if added.
func (st *ToolsContainer) Add(ctx context.Context, def StaticTool) bool {
	st.mu.Lock()
	name := def.Descriptor.Name
	for _, t := range st.tools {
		if t.Name == name {
			st.mu.Unlock()
			return false
		}
	}
	st.tools = append(st.tools, def.Descriptor)
	if def.Handler != nil {
		st.handlers[name] = def.Handler
	}
	st.mu.Unlock()
	_ = st.notifier.Notify(ctx)
	return true
}

// Remove removes a tool by name. Returns true if removed.
func (st *ToolsContainer) Remove(ctx context.Context, name string) bool {
	st.mu.Lock()
	n := 0
	removed := false
	for _, t := range st.tools {
		if t.Name == name {
			removed = true
			continue
		}
		st.tools[n] = t
		n++
	}
	if removed {
		st.tools = st.tools[:n]
		delete(st.handlers, name)
	}
	st.mu.Unlock()
	if removed {
		_ = st.notifier.Notify(ctx)
	}
	return removed
}

// Subscriber implements ChangeSubscriber.
func (st *ToolsContainer) Subscriber() <-chan struct{} {
	return st.notifier.Subscriber()
}

// ListTools implements ToolsCapability with offset-cursor pagination.
func (st *ToolsContainer) ListTools(_ context.Context, _ sessions.Session, cursor *string) (Page[mcp.Tool], error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return paginate(st.tools, cursor, st.pageSize), nil
}

// CallTool implements ToolsCapability by dispatching to the named handler.
func (st *ToolsContainer) CallTool(ctx context.Context, session sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("invalid tool request: missing name")
	}
	st.mu.RLock()
	h := st.handlers[req.Name]
	st.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, req.Name)
	}
	return h(ctx, session, req)
}

// GetListChangedCapability implements ToolsCapability.
func (st *ToolsContainer) GetListChangedCapability(context.Context, sessions.Session) (ToolListChangedCapability, bool, error) {
	return toolsListChangedFromSubscriber{sub: st}, true, nil
}

// TextResult builds a CallToolResult with a single text block.
func TextResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: s}}}
}

// Errorf builds an in-band error CallToolResult with IsError=true.
func Errorf(format string, a ...any) *mcp.CallToolResult {
	msg := fmt.Sprintf(format, a...)
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: msg}}, IsError: true}
}
