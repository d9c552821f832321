// Package mcpservice exposes composable building blocks for the server side
// of MCP. A server is a ServerCapabilities value assembled with NewServer from
// providers for its info, protocol version, instructions, tools, resources
// and logging surfaces. Transports such as stdio discover capabilities per
// session and translate JSON-RPC traffic into calls on these interfaces.
//
// Providers return (value, ok, error). ok == false means the capability is
// absent and is not advertised; an empty value with ok == true is still
// advertised (for example an empty tools list).
//
// Quick start:
//
//	type AddArgs struct {
//	    A int `json:"a" jsonschema:"description=First addend"`
//	    B int `json:"b" jsonschema:"description=Second addend"`
//	}
//
//	tools := mcpservice.NewToolsContainer(
//	    mcpservice.NewTool("add", func(ctx context.Context, _ sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[AddArgs]) error {
//	        return w.AppendText(strconv.Itoa(r.Args().A + r.Args().B))
//	    }, mcpservice.WithToolDescription("Add two numbers")),
//	)
//
//	resources := mcpservice.NewResourcesContainer()
//	_ = resources.AddTemplate(mcpservice.ResourceTemplateDef{
//	    Descriptor: mcp.ResourceTemplate{URITemplate: "greeting://{name}", Name: "greeting"},
//	    Handler: func(ctx context.Context, _ sessions.Session, uri string, vars mcpservice.TemplateVars) ([]mcp.ResourceContents, error) {
//	        return mcpservice.TextContents(uri, "Hello, "+vars.Get("name")+"!"), nil
//	    },
//	})
//
//	srv := mcpservice.NewServer(
//	    mcpservice.WithServerInfo(mcpservice.StaticServerInfo("example", "1.0.0")),
//	    mcpservice.WithToolsCapability(tools),
//	    mcpservice.WithResourcesCapability(resources),
//	)
package mcpservice
