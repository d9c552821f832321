// Package mcpclient is a minimal MCP client that speaks JSON-RPC over the
// standard streams of a child process.
//
// Connect starts the command, performs the initialize handshake and returns a
// Session. Calls are correlated by id, so a Session is safe for concurrent
// use, though the demos in this module issue calls one at a time. Close is
// idempotent: it closes the child's stdin, waits for a grace period and then
// kills the process. Always pair Connect with a deferred Close:
//
//	sess, err := mcpclient.Connect(ctx, exec.Command("greeter-server"))
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
// JSON-RPC error responses are returned as *jsonrpc.Error values (use
// errors.As); tool failures reported in band arrive as results with IsError.
package mcpclient
