// ABOUTME: Core abstractions shared by the stateful and stateless transport managers.
// ABOUTME: Defines the handler contract, internal responses, scopes, and request classification.

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
)

// Protocol header names in their canonical form. Inbound lookups go through
// http.Header, which is case-insensitive.
const (
	HeaderSessionID       = "Mcp-Session-Id"
	HeaderProtocolVersion = "Mcp-Protocol-Version"
)

// SupportedProtocolVersions lists the protocol revisions this transport
// accepts, oldest first.
var SupportedProtocolVersions = []string{"2024-11-05", "2025-03-26", "2025-06-18"}

// DefaultProtocolVersion is assumed when a client omits the version header,
// per the protocol's backward-compatibility rule: absent means oldest.
const DefaultProtocolVersion = "2024-11-05"

// IsSupportedProtocolVersion reports whether v is a protocol revision this
// transport accepts.
func IsSupportedProtocolVersion(v string) bool {
	for _, s := range SupportedProtocolVersions {
		if s == v {
			return true
		}
	}
	return false
}

// JSON-RPC error codes used by the transport layer.
const (
	CodeParseError      = -32700
	CodeInvalidRequest  = -32600
	CodeInternalError   = -32603
	CodeSessionNotFound = -32001
)

// Handler is one live protocol-handler instance: the opaque object that
// interprets MCP messages and invokes tools. Handle returns the reply
// message, or nil when the inbound message was a notification that
// produces no reply. Close must be safe to call more than once.
type Handler interface {
	Handle(ctx context.Context, body []byte) (any, error)
	Initialized() bool
	Close() error
}

// Factory constructs a fresh Handler. The transport managers own every
// instance they create and are responsible for disposing it.
type Factory func(ctx context.Context) (Handler, error)

// Response is the transport-internal result of handling one request,
// decoupled from the HTTP framework. At most one of Body and Stream is
// set; both nil means no response body. SessionID, when non-empty, is
// echoed back to the client as a response header.
type Response struct {
	Status    int
	Header    http.Header
	Body      any
	Stream    io.ReadCloser
	SessionID string
}

// newResultResponse wraps a handler reply in a Response. A reply that is
// itself a byte stream passes through as the response stream; anything else
// is carried as a JSON body.
func newResultResponse(status int, msg any, sessionID string) *Response {
	if rc, ok := msg.(io.ReadCloser); ok {
		return &Response{Status: status, Stream: rc, SessionID: sessionID}
	}
	return &Response{Status: status, Body: msg, SessionID: sessionID}
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// rpcErrorBody is the full error envelope. ID always marshals as null:
// transport-level failures are never attributable to a request id.
type rpcErrorBody struct {
	JSONRPC string    `json:"jsonrpc"`
	Error   *RPCError `json:"error"`
	ID      any       `json:"id"`
}

// NewErrorResponse builds a JSON-RPC-shaped error response with a null id.
func NewErrorResponse(status, code int, message string, data any) *Response {
	return &Response{
		Status: status,
		Body: rpcErrorBody{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: code, Message: message, Data: data},
		},
	}
}

// SessionNotFound is the contractual 404 telling the client its session is
// gone and it must reinitialize.
func SessionNotFound() *Response {
	return NewErrorResponse(http.StatusNotFound, CodeSessionNotFound,
		"Session expired or invalid. Please reinitialize.", nil)
}

// InternalError is the generic 500. Internal detail stays in server logs.
func InternalError() *Response {
	return NewErrorResponse(http.StatusInternalServerError, CodeInternalError,
		"Internal server error", nil)
}

// VersionData names the requested and supported protocol versions on a
// version-negotiation rejection.
type VersionData struct {
	Requested string   `json:"requested"`
	Supported []string `json:"supported"`
}

// UnsupportedVersion is the structured 400 for a protocol version outside
// the supported set. The transport never silently downgrades.
func UnsupportedVersion(requested string) *Response {
	return NewErrorResponse(http.StatusBadRequest, CodeInvalidRequest,
		fmt.Sprintf("Unsupported protocol version: %s", requested),
		VersionData{Requested: requested, Supported: SupportedProtocolVersions})
}

// Scope identifies one in-flight request as it crosses the transport:
// correlation id, resolved session id, and the identity the auth layer
// attached. Scopes travel on the context by value and are copy-extended,
// never mutated, so concurrent requests share nothing.
type Scope struct {
	RequestID       string
	SessionID       string
	ProtocolVersion string
	ClientID        string
	TenantID        string
}

type scopeKey struct{}

// WithScope returns a context carrying the scope.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom extracts the scope from the context, or a zero scope when the
// context carries none.
func ScopeFrom(ctx context.Context) Scope {
	s, _ := ctx.Value(scopeKey{}).(Scope)
	return s
}

// Request is the classified form of one inbound message. Exactly one of
// the three variants applies; the HTTP layer switches on it to pick the
// transport-manager call.
type Request interface {
	isRequest()
}

// InitializeRequest is an initialize-type message opening a new session in
// stateful mode.
type InitializeRequest struct{}

// SessionedRequest is a non-initialize message bearing a client-supplied
// session id.
type SessionedRequest struct {
	SessionID string
}

// AnonymousRequest is a non-initialize message with no session id.
type AnonymousRequest struct{}

func (InitializeRequest) isRequest() {}
func (SessionedRequest) isRequest()  {}
func (AnonymousRequest) isRequest()  {}

// Classify inspects the raw body and the client-supplied session id and
// returns the routing variant. Malformed bodies classify like any other
// non-initialize message; the protocol handler owns parse errors.
func Classify(body []byte, suppliedSessionID string) Request {
	var probe struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Method == string(mcp.MethodInitialize) {
		return InitializeRequest{}
	}
	if suppliedSessionID != "" {
		return SessionedRequest{SessionID: suppliedSessionID}
	}
	return AnonymousRequest{}
}

// closeHandler disposes a handler. Close failures are logged, not propagated.
func closeHandler(h Handler, logger *slog.Logger) {
	if err := h.Close(); err != nil {
		logger.Warn("closing protocol handler", "error", err)
	}
}
