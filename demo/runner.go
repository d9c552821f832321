package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ggoodman/mcp-greeter-go/examples/greeter"
	"github.com/ggoodman/mcp-greeter-go/mcp"
)

// Session is the part of *mcpclient.Session the runner drives.
type Session interface {
	InitializeResult() *mcp.InitializeResult
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	ListResources(ctx context.Context) ([]mcp.Resource, error)
	ListResourceTemplates(ctx context.Context) ([]mcp.ResourceTemplate, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)
}

// Runner drives an initialized session through listing, tool calls and
// resource reads.
type Runner struct {
	p    *printer
	opts options
}

// NewRunner returns a Runner printing to w.
func NewRunner(w io.Writer, opts ...Option) *Runner {
	return &Runner{p: &printer{w: w}, opts: newOptions(opts)}
}

// Run executes the demo against sess. Individual failures are printed and
// recorded in the Report; the error is non-nil only when ctx is done or the
// output cannot be written.
func (r *Runner) Run(ctx context.Context, sess Session) (*Report, error) {
	rep := &Report{}
	p := r.p

	name := greeter.Name
	if ir := sess.InitializeResult(); ir != nil && ir.ServerInfo.Name != "" {
		name = ir.ServerInfo.Name
	}
	p.printf("🚀 Connected to %s!\n", name)
	p.println(strings.Repeat("=", 50))

	steps := []func(context.Context, Session, *Report){
		r.listTools,
		r.listResources,
		r.listResourceTemplates,
		r.callTools,
		r.readResources,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		step(ctx, sess, rep)
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	p.println("\n✅ Client testing completed!")
	if failed := rep.Failed(); len(failed) > 0 {
		r.opts.log.WarnContext(ctx, "demo.run.partial", slog.Int("failed", len(failed)), slog.Int("total", len(rep.All())))
	}
	return rep, p.err
}

func (r *Runner) listTools(ctx context.Context, sess Session, rep *Report) {
	p := r.p
	p.heading("📋 Available Tools:", 20)

	tools, err := sess.ListTools(ctx)
	rep.Listings = append(rep.Listings, Result{Label: "tools/list", Output: fmt.Sprint(len(tools)), Err: err})
	if err != nil {
		p.printf("Error listing tools: %v\n", err)
		return
	}
	if len(tools) == 0 {
		p.println("  No tools available")
		return
	}
	for _, t := range tools {
		if t.Description != "" {
			p.printf("• %s: %s\n", t.Name, t.Description)
		} else {
			p.printf("• %s\n", t.Name)
		}
		if params := t.ParameterNames(); len(params) > 0 {
			p.printf("  Parameters: %v\n", params)
		}
	}
}

func (r *Runner) listResources(ctx context.Context, sess Session, rep *Report) {
	p := r.p
	p.heading("📚 Available Resources:", 22)

	resources, err := sess.ListResources(ctx)
	rep.Listings = append(rep.Listings, Result{Label: "resources/list", Output: fmt.Sprint(len(resources)), Err: err})
	if err != nil {
		p.printf("Error listing resources: %v\n", err)
		return
	}
	if len(resources) == 0 {
		p.println("  No resources available")
		return
	}
	for _, res := range resources {
		p.printf("• %s: %s\n", res.URI, res.Name)
		if res.Description != "" {
			p.printf("  Description: %s\n", res.Description)
		}
	}
}

func (r *Runner) listResourceTemplates(ctx context.Context, sess Session, rep *Report) {
	p := r.p
	p.heading("🧩 Resource Templates:", 21)

	templates, err := sess.ListResourceTemplates(ctx)
	rep.Listings = append(rep.Listings, Result{Label: "resources/templates/list", Output: fmt.Sprint(len(templates)), Err: err})
	if err != nil {
		p.printf("Error listing resource templates: %v\n", err)
		return
	}
	if len(templates) == 0 {
		p.println("  No resource templates available")
		return
	}
	for _, t := range templates {
		p.printf("• %s: %s\n", t.URITemplate, t.Name)
		if t.Description != "" {
			p.printf("  Description: %s\n", t.Description)
		}
	}
}

func (r *Runner) callTools(ctx context.Context, sess Session, rep *Report) {
	p := r.p
	p.heading("🔧 Testing Tools:", 16)

	for _, c := range r.opts.plan.Adds {
		if ctx.Err() != nil {
			return
		}
		label := fmt.Sprintf("add(%d, %d)", c.A, c.B)
		res := Result{Label: label}
		out, err := sess.CallTool(ctx, "add", map[string]any{"a": c.A, "b": c.B})
		switch {
		case err != nil:
			res.Err = err
		case out.IsError:
			text, _ := out.FirstText()
			res.Err = fmt.Errorf("tool reported error: %s", text)
		default:
			text, ok := out.FirstText()
			if !ok {
				res.Err = errors.New("tool returned no text content")
			}
			res.Output = text
		}
		rep.Tools = append(rep.Tools, res)

		if res.OK() {
			p.printf("%s = %s\n", label, res.Output)
		} else {
			p.printf("Error calling add tool %s: %v\n", label, res.Err)
		}
	}
	p.printf("Tool calls: %s\n", Summary(rep.Tools))
}

func (r *Runner) readResources(ctx context.Context, sess Session, rep *Report) {
	p := r.p
	p.heading("📖 Testing Resources:", 19)

	for _, name := range r.opts.plan.Names {
		if ctx.Err() != nil {
			return
		}
		uri := greeter.GreetingURI(name)
		res := Result{Label: uri}
		out, err := sess.ReadResource(ctx, uri)
		switch {
		case err != nil:
			res.Err = err
		case len(out.Contents) == 0:
			res.Err = errors.New("resource returned no contents")
		default:
			res.Output = out.Contents[0].Text
		}
		rep.Reads = append(rep.Reads, res)

		if res.OK() {
			p.printf("Resource %s: %s\n", uri, res.Output)
		} else {
			p.printf("Error reading resource %s: %v\n", uri, res.Err)
		}
	}
	p.printf("Resource reads: %s\n", Summary(rep.Reads))
}
