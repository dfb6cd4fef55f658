// Package engine implements the protocol handler the transport layer binds
// to sessions.
//
// An Engine wraps one mcp-go MCPServer configured with the git and kv tool
// set. The transport layer creates engines through NewFactory: one engine per
// session in stateful mode, one per request in stateless mode. Raw JSON-RPC
// bodies flow in through Handle; notifications produce a nil reply.
//
// Per-engine state is deliberately small: the initialize flag mcp-go flips
// during the handshake, and the git working directory set by
// git_set_working_dir. In stateful mode that working directory persists
// across a session's requests, which is the main reason sessions exist.
package engine
