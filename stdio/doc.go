// Package stdio implements a single-connection MCP server transport over
// stdin/stdout. It is intended for servers launched as subprocesses by a
// client that pipes newline-delimited JSON-RPC through the child's standard
// streams.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Identity         : OS user (lightweight implicit principal)
//	Sessions         : Ephemeral; one per Serve call, memory only
//	Framing          : One JSON-RPC message per line
//
// Requests are handled concurrently; responses may be written in any order
// and are correlated by id. A notifications/cancelled from the client
// cancels the matching request's context and suppresses its response.
//
// Example:
//
//	srv := mcpservice.NewServer(
//	    mcpservice.WithServerInfo(mcpservice.StaticServerInfo("my-stdio-server", "0.1.0")),
//	    // mcpservice.WithToolsCapability(...), etc.
//	)
//	h := stdio.NewHandler(srv)
//	if err := h.Serve(context.Background()); err != nil { log.Fatal(err) }
//
// Logs go to the configured slog.Logger. Keep it off stdout, which carries
// protocol frames.
package stdio
