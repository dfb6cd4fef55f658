// Package transport routes MCP requests to protocol-handler instances in
// two modes: stateful, where a long-lived handler is bound to a session id
// created by an initialize exchange, and stateless, where a fresh handler
// serves exactly one request and is then disposed.
//
// The package is deliberately unaware of HTTP framing. Managers consume a
// raw message body plus a request Scope carried on the context and produce
// a Response holding status, headers, and either a buffered body or a byte
// stream; the httpserver package translates both directions.
//
// Expected protocol outcomes (unknown session, unsupported version,
// benign delete of a missing session) are returned as Response values.
// Only unexpected failures surface as Go errors, which the HTTP layer's
// error boundary maps to a generic JSON-RPC internal error.
package transport
