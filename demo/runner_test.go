package demo

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/ggoodman/mcp-greeter-go/examples/greeter"
	"github.com/ggoodman/mcp-greeter-go/mcp"
)

// fakeSession answers like the greeter and fails the URIs and operations it
// is told to.
type fakeSession struct {
	failURIs  map[string]error
	listErr   error
	toolErr   error
	noTools   bool
	onList    func()
	calls     int
	readOrder []string
}

func (f *fakeSession) InitializeResult() *mcp.InitializeResult {
	return &mcp.InitializeResult{ServerInfo: mcp.ImplementationInfo{Name: greeter.Name, Version: greeter.Version}}
}

func (f *fakeSession) ListTools(context.Context) ([]mcp.Tool, error) {
	if f.onList != nil {
		f.onList()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.noTools {
		return nil, nil
	}
	return greeter.Tools(), nil
}

func (f *fakeSession) ListResources(context.Context) ([]mcp.Resource, error) {
	return greeter.Resources(), nil
}

func (f *fakeSession) ListResourceTemplates(context.Context) ([]mcp.ResourceTemplate, error) {
	return greeter.ResourceTemplates(), nil
}

func (f *fakeSession) CallTool(_ context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	f.calls++
	if f.toolErr != nil && f.calls == 1 {
		return nil, f.toolErr
	}
	a, _ := args["a"].(int)
	b, _ := args["b"].(int)
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: strconv.Itoa(greeter.Add(a, b))}}}, nil
}

func (f *fakeSession) ReadResource(_ context.Context, uri string) (*mcp.ReadResourceResult, error) {
	f.readOrder = append(f.readOrder, uri)
	if err := f.failURIs[uri]; err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(uri, "greeting://")
	return &mcp.ReadResourceResult{Contents: []mcp.ResourceContents{{URI: uri, Text: greeter.Greeting(name)}}}, nil
}

func mustContain(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Fatalf("output missing %q:\n%s", w, out)
		}
	}
}

func TestRunner_HappyPath(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	rep, err := NewRunner(&out).Run(context.Background(), &fakeSession{})
	if err != nil {
		t.Fatal(err)
	}
	mustContain(t, out.String(),
		"🚀 Connected to KaitoMCPServer!",
		"• add: Add two numbers",
		"  Parameters: [a b]",
		"• greeting://World: world_greeting",
		"• greeting://{name}: get_greeting",
		"add(15, 27) = 42",
		"add(100, 50) = 150",
		"Tool calls: 2/2 succeeded",
		"Resource greeting://Alice: Hello, Alice!",
		"Resource greeting://World: Hello, World!",
		"Resource reads: 3/3 succeeded",
		"✅ Client testing completed!",
	)
	if len(rep.Failed()) != 0 || len(rep.Tools) != 2 || len(rep.Reads) != 3 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestRunner_OneFailureDoesNotStopBatch(t *testing.T) {
	t.Parallel()
	fake := &fakeSession{
		failURIs: map[string]error{"greeting://Bob": errors.New("backend down")},
		toolErr:  errors.New("transport hiccup"),
	}
	var out bytes.Buffer
	rep, err := NewRunner(&out).Run(context.Background(), fake)
	if err != nil {
		t.Fatal(err)
	}
	mustContain(t, out.String(),
		"Error calling add tool add(15, 27): transport hiccup",
		"add(100, 50) = 150",
		"Tool calls: 1/2 succeeded",
		"Error reading resource greeting://Bob: backend down",
		"Resource greeting://World: Hello, World!",
		"Resource reads: 2/3 succeeded",
	)
	if got := strings.Join(fake.readOrder, ","); got != "greeting://Alice,greeting://Bob,greeting://World" {
		t.Fatalf("read order = %s", got)
	}
	failed := rep.Failed()
	if len(failed) != 2 || failed[0].Label != "add(15, 27)" || failed[1].Label != "greeting://Bob" {
		t.Fatalf("failed = %+v", failed)
	}
}

func TestRunner_ListingFailureContinues(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	rep, err := NewRunner(&out).Run(context.Background(), &fakeSession{listErr: errors.New("nope")})
	if err != nil {
		t.Fatal(err)
	}
	mustContain(t, out.String(), "Error listing tools: nope", "add(15, 27) = 42")
	if rep.Listings[0].OK() {
		t.Fatalf("listing failure not recorded")
	}
}

func TestRunner_EmptyTools(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	if _, err := NewRunner(&out).Run(context.Background(), &fakeSession{noTools: true}); err != nil {
		t.Fatal(err)
	}
	mustContain(t, out.String(), "  No tools available")
}

func TestRunner_CustomPlan(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	plan := Plan{Adds: []AddCall{{A: -2, B: 5}}, Names: []string{"Zed"}}
	rep, err := NewRunner(&out, WithPlan(plan)).Run(context.Background(), &fakeSession{})
	if err != nil {
		t.Fatal(err)
	}
	mustContain(t, out.String(), "add(-2, 5) = 3", "Resource greeting://Zed: Hello, Zed!")
	if len(rep.Tools) != 1 || len(rep.Reads) != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestRunner_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeSession{onList: cancel}
	var out bytes.Buffer
	_, err := NewRunner(&out).Run(ctx, fake)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("no tool calls expected after cancellation, got %d", fake.calls)
	}
}

func TestRunDirect(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	if err := RunDirect(&out); err != nil {
		t.Fatal(err)
	}
	mustContain(t, out.String(),
		"Server name: KaitoMCPServer",
		"• add: Add two numbers",
		"add(15, 27) = 42",
		"add(100, 50) = 150",
		"get_greeting('Alice') = Hello, Alice!",
		"get_greeting('Bob') = Hello, Bob!",
		"get_greeting('World') = Hello, World!",
		"✅ All tests completed successfully!",
	)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRunDirect_WriteError(t *testing.T) {
	t.Parallel()
	if err := RunDirect(failingWriter{}); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()
	rs := []Result{{Label: "a"}, {Label: "b", Err: errors.New("x")}}
	if got := Summary(rs); got != "1/2 succeeded" {
		t.Fatalf("Summary = %q", got)
	}
}
