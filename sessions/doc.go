// Package sessions defines the session abstraction shared by the stdio
// transport and server capability code. A session records the negotiated
// protocol version, the local principal, and the client's declared identity
// and capabilities for one connected peer.
//
// Capability code receives a Session on every call and may treat it as the
// boundary for per-client behavior. The stdio transport creates exactly one
// session per connection and moves it through the lifecycle
//
//	pending -> open -> closed
//
// when it answers initialize, receives notifications/initialized, and reaches
// EOF respectively.
package sessions
