package mcpservice

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/sessions"
)

func testSession() sessions.Session {
	return sessions.New(sessions.Metadata{SessionID: "s1", UserID: "u1", ProtocolVersion: mcp.LatestProtocolVersion})
}

type sumArgs struct {
	A int `json:"a" jsonschema:"description=First addend"`
	B int `json:"b" jsonschema:"description=Second addend"`
}

type optionalArgs struct {
	Name  string   `json:"name"`
	Tags  []string `json:"tags,omitempty"`
	Limit int      `json:"limit,omitempty"`
}

func sumTool(opts ...ToolOption) StaticTool {
	return NewTool("sum", func(ctx context.Context, _ sessions.Session, w ToolResponseWriter, r *ToolRequest[sumArgs]) error {
		return w.AppendText(strconv.Itoa(r.Args().A + r.Args().B))
	}, opts...)
}

func call(t *testing.T, st *ToolsContainer, name, args string) *mcp.CallToolResult {
	t.Helper()
	res, err := st.CallTool(context.Background(), testSession(), &mcp.CallToolRequestReceived{Name: name, Arguments: json.RawMessage(args)})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func TestNewTool_ReflectsSchema(t *testing.T) {
	t.Parallel()
	tool := sumTool(WithToolDescription("Add two numbers"), WithToolTitle("Sum"))
	d := tool.Descriptor
	if d.Name != "sum" || d.Description != "Add two numbers" || d.Title != "Sum" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if d.InputSchema.Type != "object" {
		t.Fatalf("schema type = %q", d.InputSchema.Type)
	}
	a, ok := d.InputSchema.Properties["a"]
	if !ok || a.Type != "integer" || a.Description != "First addend" {
		t.Fatalf("property a = %+v", a)
	}
	if len(d.InputSchema.Required) != 2 {
		t.Fatalf("required = %v", d.InputSchema.Required)
	}
	if d.InputSchema.AdditionalProperties {
		t.Fatalf("additionalProperties should default to false")
	}
	if got := d.ParameterNames(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("ParameterNames = %v", got)
	}
}

func TestNewTool_OptionalFieldsNotRequired(t *testing.T) {
	t.Parallel()
	tool := NewTool("opt", func(context.Context, sessions.Session, ToolResponseWriter, *ToolRequest[optionalArgs]) error { return nil })
	s := tool.Descriptor.InputSchema
	if len(s.Required) != 1 || s.Required[0] != "name" {
		t.Fatalf("required = %v", s.Required)
	}
	if tags := s.Properties["tags"]; tags.Type != "array" || tags.Items == nil || tags.Items.Type != "string" {
		t.Fatalf("tags = %+v", tags)
	}
}

func TestNewTool_CallAndValidation(t *testing.T) {
	t.Parallel()
	st := NewToolsContainer(sumTool())

	if text, _ := call(t, st, "sum", `{"a":15,"b":27}`).FirstText(); text != "42" {
		t.Fatalf("sum = %q", text)
	}
	if res := call(t, st, "sum", `{"a":1}`); !res.IsError {
		t.Fatalf("missing field should be an in-band error: %+v", res)
	}
	if res := call(t, st, "sum", `{"a":1,"b":2,"c":3}`); !res.IsError {
		t.Fatalf("unknown field should be rejected by default")
	}
	if res := call(t, st, "sum", `{"a":"one","b":2}`); !res.IsError {
		t.Fatalf("wrong type should be an in-band error")
	}

	lenient := NewToolsContainer(sumTool(WithToolAllowAdditionalProperties(true)))
	if text, _ := call(t, lenient, "sum", `{"a":1,"b":2,"c":3}`).FirstText(); text != "3" {
		t.Fatalf("lenient sum = %q", text)
	}
}

func TestToolsContainer_NotFound(t *testing.T) {
	t.Parallel()
	st := NewToolsContainer()
	_, err := st.CallTool(context.Background(), testSession(), &mcp.CallToolRequestReceived{Name: "nope"})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestToolsContainer_MutationsAndPagination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewToolsContainer()
	st.SetPageSize(2)
	sub := st.Subscriber()

	for _, name := range []string{"a", "b", "c"} {
		if !st.Add(ctx, StaticTool{Descriptor: mcp.Tool{Name: name}}) {
			t.Fatalf("Add(%s) failed", name)
		}
	}
	if st.Add(ctx, StaticTool{Descriptor: mcp.Tool{Name: "a"}}) {
		t.Fatalf("duplicate Add should fail")
	}
	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatalf("expected change signal")
	}

	page, _ := st.ListTools(ctx, testSession(), nil)
	if len(page.Items) != 2 || page.NextCursor == nil {
		t.Fatalf("first page = %+v", page)
	}
	page, _ = st.ListTools(ctx, testSession(), page.NextCursor)
	if len(page.Items) != 1 || page.Items[0].Name != "c" || page.NextCursor != nil {
		t.Fatalf("second page = %+v", page)
	}

	if !st.Remove(ctx, "b") || st.Remove(ctx, "b") {
		t.Fatalf("Remove should succeed exactly once")
	}
	st.Replace(ctx, StaticTool{Descriptor: mcp.Tool{Name: "x", Description: "first"}}, StaticTool{Descriptor: mcp.Tool{Name: "x", Description: "second"}})
	snap := st.Snapshot()
	if len(snap) != 1 || snap[0].Description != "second" {
		t.Fatalf("Replace should keep the last duplicate: %+v", snap)
	}
}

func TestToolResponseWriter(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	w := newToolResponseWriter(ctx)
	_ = w.AppendText("a")
	_ = w.AppendText("")
	w.SetError(true)
	w.SetMeta("k", 1)
	res := w.Result()
	if len(res.Content) != 1 || !res.IsError || res.Meta["k"] != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := w.AppendText("late"); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}

	var reported []float64
	pctx := WithProgressReporter(ctx, ProgressReporterFunc(func(_ context.Context, p, total float64) error {
		reported = append(reported, p, total)
		return nil
	}))
	if err := newToolResponseWriter(pctx).SendProgress(1, 4); err != nil {
		t.Fatal(err)
	}
	if len(reported) != 2 || reported[0] != 1 || reported[1] != 4 {
		t.Fatalf("reported = %v", reported)
	}

	cancel()
	if err := newToolResponseWriter(ctx).AppendText("x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
