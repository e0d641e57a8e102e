// Package transport implements the three MCP transports (C10): stdio,
// SSE, and streamable-HTTP. All three route every inbound envelope
// through the same *mcp.Dispatcher instance — they differ only in how
// bytes reach the dispatcher and how responses are written back, never
// in how a method is routed or an error is shaped.
package transport

import "context"

// Dispatch is the one call every transport makes into the MCP
// dispatcher: feed it a raw JSON-RPC payload (single envelope or
// batch), get back the raw response payload (nil for all-notification
// input).
type Dispatch func(ctx context.Context, raw []byte) []byte

// Transport is the lifecycle every transport implementation exposes to
// cmd/gateway.
type Transport interface {
	// Serve blocks until the transport's listener/loop stops or ctx is
	// canceled.
	Serve(ctx context.Context) error
	// Shutdown closes all open streams/sessions and releases the
	// transport's listener. It does not cancel in-flight dispatcher calls.
	Shutdown(ctx context.Context) error
}
