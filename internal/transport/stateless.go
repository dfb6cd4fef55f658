// ABOUTME: Stateless transport manager creating one ephemeral handler per request.
// ABOUTME: Guarantees disposal of the instance on success, failure, and panic.

package transport

import (
	"context"
	"log/slog"
	"net/http"
)

// StatelessManager serves every request with a brand-new handler instance
// and retains nothing between requests. A client-supplied session id is
// never used for routing; it is echoed back untouched when present.
type StatelessManager struct {
	factory Factory
	logger  *slog.Logger
}

// NewStatelessManager creates a stateless manager around the handler factory.
func NewStatelessManager(factory Factory, logger *slog.Logger) *StatelessManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatelessManager{
		factory: factory,
		logger:  logger.With("component", "transport"),
	}
}

// HandleRequest runs a single request/response cycle on a fresh handler,
// which may be an initialize or any other message since there is no session
// continuity to enforce. Failures come back as error responses rather than
// Go errors, and the instance is disposed on every path.
func (m *StatelessManager) HandleRequest(ctx context.Context, body []byte) (resp *Response, err error) {
	scope := ScopeFrom(ctx)

	h, ferr := m.factory(ctx)
	if ferr != nil {
		m.logger.Error("constructing protocol handler", "error", ferr, "request_id", scope.RequestID)
		return InternalError(), nil
	}
	defer closeHandler(h, m.logger)
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("handler panic", "panic", r, "request_id", scope.RequestID)
			resp, err = InternalError(), nil
		}
	}()

	msg, herr := h.Handle(ctx, body)
	if herr != nil {
		m.logger.Error("one-shot request failed", "error", herr, "request_id", scope.RequestID)
		return InternalError(), nil
	}

	if msg == nil {
		return &Response{Status: http.StatusNoContent, SessionID: scope.SessionID}, nil
	}
	return newResultResponse(http.StatusOK, msg, scope.SessionID), nil
}
