package mcpservice

import (
	"context"
	"errors"
	"testing"

	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/sessions"
)

func greetingTemplate() ResourceTemplateDef {
	return ResourceTemplateDef{
		Descriptor: mcp.ResourceTemplate{URITemplate: "greeting://{name}", Name: "greeting", Description: "Get a personalized greeting"},
		Handler: func(_ context.Context, _ sessions.Session, uri string, vars TemplateVars) ([]mcp.ResourceContents, error) {
			name := vars.Get("name")
			if name == "" {
				return nil, errors.New("name required")
			}
			return TextContents(uri, "Hello, "+name+"!"), nil
		},
	}
}

func TestResourcesContainer_Templates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rc := NewResourcesContainer()
	if err := rc.AddTemplate(greetingTemplate()); err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}
	if err := rc.AddTemplate(greetingTemplate()); err == nil {
		t.Fatalf("duplicate template should fail")
	}
	if err := rc.AddTemplate(ResourceTemplateDef{Descriptor: mcp.ResourceTemplate{URITemplate: "x://{a"}, Handler: greetingTemplate().Handler}); err == nil {
		t.Fatalf("malformed template should fail")
	}
	if err := rc.AddTemplate(ResourceTemplateDef{Descriptor: mcp.ResourceTemplate{URITemplate: "y://{a}"}}); err == nil {
		t.Fatalf("template without handler should fail")
	}

	for _, name := range []string{"Alice", "Bob", "World"} {
		contents, err := rc.ReadResource(ctx, testSession(), "greeting://"+name)
		if err != nil {
			t.Fatalf("ReadResource(%s): %v", name, err)
		}
		if len(contents) != 1 || contents[0].Text != "Hello, "+name+"!" || contents[0].URI != "greeting://"+name {
			t.Fatalf("unexpected contents: %+v", contents)
		}
	}

	if _, err := rc.ReadResource(ctx, testSession(), "weather://today"); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}

	page, _ := rc.ListResourceTemplates(ctx, testSession(), nil)
	if len(page.Items) != 1 || page.Items[0].Description != "Get a personalized greeting" {
		t.Fatalf("templates = %+v", page.Items)
	}
}

func TestResourcesContainer_StaticBeforeTemplate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rc := NewResourcesContainer()
	_ = rc.AddTemplate(greetingTemplate())
	rc.UpsertResource(TextResource("greeting://World", "static world", WithName("world"), WithDescription("d"), WithMimeType("text/markdown")))

	contents, err := rc.ReadResource(ctx, testSession(), "greeting://World")
	if err != nil {
		t.Fatal(err)
	}
	if contents[0].Text != "static world" || contents[0].MimeType != "text/markdown" {
		t.Fatalf("static resource should win: %+v", contents)
	}

	list := rc.SnapshotResources()
	if len(list) != 1 || list[0].Name != "world" || list[0].Description != "d" {
		t.Fatalf("resources = %+v", list)
	}

	rc.UpsertResource(TextResource("greeting://World", "replaced"))
	if got := rc.SnapshotResources(); len(got) != 1 || got[0].Name != "greeting://World" {
		t.Fatalf("upsert should replace in place: %+v", got)
	}

	if !rc.RemoveResource("greeting://World") || rc.RemoveResource("greeting://World") {
		t.Fatalf("RemoveResource should succeed exactly once")
	}
	contents, err = rc.ReadResource(ctx, testSession(), "greeting://World")
	if err != nil || contents[0].Text != "Hello, World!" {
		t.Fatalf("template should serve after removal: %+v, %v", contents, err)
	}
}

func TestResourcesContainer_ListChanged(t *testing.T) {
	t.Parallel()
	rc := NewResourcesContainer()
	lc, ok, err := rc.GetListChangedCapability(context.Background(), testSession())
	if err != nil || !ok {
		t.Fatalf("list changed capability: %v %v", ok, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fired := make(chan struct{}, 1)
	if ok, err := lc.Register(ctx, testSession(), func(context.Context, sessions.Session) { fired <- struct{}{} }); !ok || err != nil {
		t.Fatalf("Register: %v %v", ok, err)
	}

	rc.UpsertResource(TextResource("a://b", "c"))
	<-fired
}
