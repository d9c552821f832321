package demo

import (
	"io"
	"strings"

	"github.com/ggoodman/mcp-greeter-go/examples/greeter"
)

// RunDirect exercises the greeter's functions in-process, without MCP.
func RunDirect(w io.Writer, opts ...Option) error {
	o := newOptions(opts)
	p := &printer{w: w}

	p.println("🚀 KaitoMCPServer Client Test")
	p.println(strings.Repeat("=", 30))
	p.println("🧪 Testing server directly...")
	p.println("✅ Server loaded successfully!")
	p.printf("Server name: %s\n", greeter.Name)

	p.heading("📋 Available Tools:", 20)
	for _, t := range greeter.Tools() {
		desc := t.Description
		if desc == "" {
			desc = "No description"
		}
		p.printf("• %s: %s\n", t.Name, desc)
	}

	p.heading("🔧 Testing add function directly:", 32)
	for _, c := range o.plan.Adds {
		p.printf("add(%d, %d) = %d\n", c.A, c.B, greeter.Add(c.A, c.B))
	}

	p.heading("📖 Testing greeting function directly:", 36)
	for _, name := range o.plan.Names {
		p.printf("get_greeting('%s') = %s\n", name, greeter.Greeting(name))
	}

	p.println("\n" + strings.Repeat("=", 30))
	p.println("✅ All tests completed successfully!")
	return p.err
}
