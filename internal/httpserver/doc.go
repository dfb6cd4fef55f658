// Package httpserver exposes the MCP service over Streamable HTTP.
//
// # Endpoints
//
// The protocol lives on one configurable path (default /mcp):
//
//   - POST carries JSON-RPC messages and is the only protocol method.
//   - GET returns an informational status document.
//   - DELETE terminates the session named by the Mcp-Session-Id header.
//
// GET /healthz answers {"status":"ok"} for load balancers and probes.
// Health and status are never authenticated.
//
// # Middleware order
//
// Requests pass through CORS, the panic boundary, and request logging, then
// protocol requests additionally pass version negotiation, scope resolution,
// and (when configured) bearer-token auth before dispatch. The order is
// contractual: an unsupported protocol version is rejected before auth runs,
// and a disallowed origin never reaches the protocol at all.
//
// # Session modes
//
// Dispatch honors the configured session mode. Stateful binds one protocol
// handler per session and rejects anonymous non-initialize traffic.
// Stateless serves every request on a fresh handler and retains nothing.
// Auto blends the two: initialize and session-bearing requests are stateful,
// anonymous requests are served statelessly.
//
// # Lifecycle
//
// Run binds a TCP listener (with a bounded walk to neighboring ports when
// the configured one is taken) or joins a tailnet via tsnet, starts the
// session sweep, and serves until the context is cancelled. Shutdown drains
// in-flight requests, stops the sweep, and disposes every live handler.
package httpserver
