// Package demo holds the two KaitoMCPServer demos.
//
// RunDirect calls the greeter's functions in-process. RunSession launches the
// server as a child process, talks MCP to it over stdio and always tears the
// child down before returning. Both print human-readable progress to an
// io.Writer; per-item failures are printed and collected in a Report rather
// than aborting the run.
package demo
