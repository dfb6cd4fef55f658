// Package auth provides bearer-token authentication for the MCP endpoint.
//
// # Authentication
//
// Clients authenticate with HS256-signed JWT tokens carried in the
// Authorization header:
//
//	Authorization: Bearer <token>
//
// Recognized claims:
//
//   - sub (required): stable client identifier
//   - tid: tenant the client belongs to
//   - scope: space-separated granted scopes
//
// # Context Propagation
//
// The HTTP middleware verifies the token before any transport logic runs
// and attaches an AuthContext to the request context:
//
//	authCtx := auth.FromContext(ctx)
//
// The transport layer copies the identity into its per-request scope, so
// sessions record which client and tenant created them. When auth.mode is
// "none" the middleware is not installed and FromContext returns nil.
package auth
