package mcpservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/sessions"
	"github.com/yosida95/uritemplate/v3"
)

// ErrResourceNotFound is wrapped by ReadResource for URIs that match neither a
// static resource nor a template.
var ErrResourceNotFound = errors.New("resource not found")

// StaticResource pairs a listed resource with its contents.
type StaticResource struct {
	Descriptor mcp.Resource
	Contents   []mcp.ResourceContents
}

// ResourceOption configures a StaticResource built by TextResource.
type ResourceOption func(*StaticResource)

func WithName(name string) ResourceOption {
	return func(r *StaticResource) { r.Descriptor.Name = name }
}

func WithTitle(title string) ResourceOption {
	return func(r *StaticResource) { r.Descriptor.Title = title }
}

func WithDescription(desc string) ResourceOption {
	return func(r *StaticResource) { r.Descriptor.Description = desc }
}

// WithMimeType sets the MIME type on both the descriptor and its contents.
func WithMimeType(mime string) ResourceOption {
	return func(r *StaticResource) {
		r.Descriptor.MimeType = mime
		for i := range r.Contents {
			r.Contents[i].MimeType = mime
		}
	}
}

// TextResource builds a text StaticResource. The name defaults to the URI.
func TextResource(uri, text string, opts ...ResourceOption) StaticResource {
	r := StaticResource{
		Descriptor: mcp.Resource{URI: uri, Name: uri, MimeType: "text/plain"},
		Contents:   TextContents(uri, text),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// TextContents returns a single text/plain content entry for uri.
func TextContents(uri, text string) []mcp.ResourceContents {
	return []mcp.ResourceContents{{URI: uri, MimeType: "text/plain", Text: text}}
}

// TemplateVars exposes the variables extracted from a URI matched against a
// resource template.
type TemplateVars struct {
	values uritemplate.Values
}

// Get returns the string value of a template variable, or "" when absent.
func (v TemplateVars) Get(name string) string {
	if v.values == nil {
		return ""
	}
	return v.values.Get(name).String()
}

// ResourceTemplateHandler produces contents for a URI that matched a template.
type ResourceTemplateHandler func(ctx context.Context, session sessions.Session, uri string, vars TemplateVars) ([]mcp.ResourceContents, error)

// ResourceTemplateDef pairs a template descriptor with its handler.
type ResourceTemplateDef struct {
	Descriptor mcp.ResourceTemplate
	Handler    ResourceTemplateHandler
}

type compiledTemplate struct {
	def  ResourceTemplateDef
	tmpl *uritemplate.Template
}

// ResourcesContainer owns a mutable, threadsafe set of static resources and
// resource templates and implements ResourcesCapability over them. Reads try
// static resources first, then templates in registration order.
type ResourcesContainer struct {
	mu sync.RWMutex

	resources []StaticResource
	index     map[string]int // uri -> position in resources
	templates []compiledTemplate

	notifier ChangeNotifier

	pageSize int
}

// NewResourcesContainer constructs an empty ResourcesContainer.
func NewResourcesContainer() *ResourcesContainer {
	return &ResourcesContainer{index: make(map[string]int), pageSize: defaultPageSize}
}

// ProvideResources implements ResourcesCapabilityProvider. An empty container
// is still a present capability.
func (rc *ResourcesContainer) ProvideResources(context.Context, sessions.Session) (ResourcesCapability, bool, error) {
	return rc, true, nil
}

// SetPageSize configures the page size for listings. Values < 1 are ignored.
func (rc *ResourcesContainer) SetPageSize(n int) {
	if n < 1 {
		return
	}
	rc.mu.Lock()
	rc.pageSize = n
	rc.mu.Unlock()
}

// UpsertResource adds r or replaces the resource with the same URI.
func (rc *ResourcesContainer) UpsertResource(r StaticResource) {
	rc.mu.Lock()
	if i, ok := rc.index[r.Descriptor.URI]; ok {
		rc.resources[i] = r
	} else {
		rc.index[r.Descriptor.URI] = len(rc.resources)
		rc.resources = append(rc.resources, r)
	}
	rc.mu.Unlock()
	_ = rc.notifier.Notify(context.Background())
}

// RemoveResource removes a static resource by URI; returns true if removed.
func (rc *ResourcesContainer) RemoveResource(uri string) bool {
	rc.mu.Lock()
	i, ok := rc.index[uri]
	if !ok {
		rc.mu.Unlock()
		return false
	}
	rc.resources = append(rc.resources[:i], rc.resources[i+1:]...)
	delete(rc.index, uri)
	for j := i; j < len(rc.resources); j++ {
		rc.index[rc.resources[j].Descriptor.URI] = j
	}
	rc.mu.Unlock()
	_ = rc.notifier.Notify(context.Background())
	return true
}

// AddTemplate registers a resource template. It fails if the template does
// not parse, has no handler, or duplicates an existing template string.
func (rc *ResourcesContainer) AddTemplate(def ResourceTemplateDef) error {
	if def.Handler == nil {
		return fmt.Errorf("resource template %q: missing handler", def.Descriptor.URITemplate)
	}
	tmpl, err := uritemplate.New(def.Descriptor.URITemplate)
	if err != nil {
		return fmt.Errorf("resource template %q: %w", def.Descriptor.URITemplate, err)
	}
	rc.mu.Lock()
	for _, ct := range rc.templates {
		if ct.def.Descriptor.URITemplate == def.Descriptor.URITemplate {
			rc.mu.Unlock()
			return fmt.Errorf("resource template %q already registered", def.Descriptor.URITemplate)
		}
	}
	rc.templates = append(rc.templates, compiledTemplate{def: def, tmpl: tmpl})
	rc.mu.Unlock()
	_ = rc.notifier.Notify(context.Background())
	return nil
}

// SnapshotResources returns a copy of the listed resource descriptors.
func (rc *ResourcesContainer) SnapshotResources() []mcp.Resource {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.descriptorsLocked()
}

// SnapshotTemplates returns a copy of the template descriptors.
func (rc *ResourcesContainer) SnapshotTemplates() []mcp.ResourceTemplate {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.templateDescriptorsLocked()
}

func (rc *ResourcesContainer) descriptorsLocked() []mcp.Resource {
	out := make([]mcp.Resource, len(rc.resources))
	for i, r := range rc.resources {
		out[i] = r.Descriptor
	}
	return out
}

func (rc *ResourcesContainer) templateDescriptorsLocked() []mcp.ResourceTemplate {
	out := make([]mcp.ResourceTemplate, len(rc.templates))
	for i, ct := range rc.templates {
		out[i] = ct.def.Descriptor
	}
	return out
}

// Subscriber implements ChangeSubscriber.
func (rc *ResourcesContainer) Subscriber() <-chan struct{} {
	return rc.notifier.Subscriber()
}

// ListResources implements ResourcesCapability.
func (rc *ResourcesContainer) ListResources(_ context.Context, _ sessions.Session, cursor *string) (Page[mcp.Resource], error) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return paginate(rc.descriptorsLocked(), cursor, rc.pageSize), nil
}

// ListResourceTemplates implements ResourcesCapability.
func (rc *ResourcesContainer) ListResourceTemplates(_ context.Context, _ sessions.Session, cursor *string) (Page[mcp.ResourceTemplate], error) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return paginate(rc.templateDescriptorsLocked(), cursor, rc.pageSize), nil
}

// ReadResource implements ResourcesCapability.
func (rc *ResourcesContainer) ReadResource(ctx context.Context, session sessions.Session, uri string) ([]mcp.ResourceContents, error) {
	rc.mu.RLock()
	if i, ok := rc.index[uri]; ok {
		out := append([]mcp.ResourceContents(nil), rc.resources[i].Contents...)
		rc.mu.RUnlock()
		return out, nil
	}
	templates := append([]compiledTemplate(nil), rc.templates...)
	rc.mu.RUnlock()

	for _, ct := range templates {
		if !ct.tmpl.Regexp().MatchString(uri) {
			continue
		}
		return ct.def.Handler(ctx, session, uri, TemplateVars{values: ct.tmpl.Match(uri)})
	}
	return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
}

// GetListChangedCapability implements ResourcesCapability.
func (rc *ResourcesContainer) GetListChangedCapability(context.Context, sessions.Session) (ResourceListChangedCapability, bool, error) {
	return resourceListChangedFromSubscriber{sub: rc}, true, nil
}
