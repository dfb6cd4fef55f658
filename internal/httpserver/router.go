// ABOUTME: Routing and middleware for the MCP endpoint: CORS, version negotiation,
// ABOUTME: scope resolution, auth, and dispatch to the transport managers.

package httpserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/2389/git-mcp/internal/auth"
	"github.com/2389/git-mcp/internal/config"
	"github.com/2389/git-mcp/internal/transport"
)

const serverName = "git-mcp"

// maxRequestBody caps inbound POST bodies. Tool calls are small; anything
// bigger is a client bug or abuse.
const maxRequestBody = 1 << 20

// buildRouter assembles the middleware stack in protocol order: CORS first,
// then the error boundary, then scope resolution and auth on the protocol
// methods. Health and status stay outside authentication.
func (s *Server) buildRouter() http.Handler {
	router := chi.NewMux()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Authorization", "Content-Type", "Last-Event-ID",
			transport.HeaderSessionID, transport.HeaderProtocolVersion,
		},
		ExposedHeaders: []string{transport.HeaderSessionID},
	})
	router.Use(corsHandler.Handler)
	router.Use(s.recoverPanics)
	router.Use(s.logRequests)

	router.Get("/healthz", s.handleHealth)

	router.Route(s.cfg.HTTP.Path, func(r chi.Router) {
		r.Get("/", s.handleStatus)

		pr := r.With(s.resolveScope)
		if s.verifier != nil {
			pr = pr.With(auth.Middleware(s.verifier), s.attachIdentity)
		}
		pr.Post("/", s.handlePost)
		pr.Delete("/", s.handleDelete)
	})

	return router
}

// resolveScope builds the request scope in protocol order: negotiate the
// protocol version, then capture the client-supplied session id. Unsupported
// versions are rejected here so nothing downstream ever sees one.
func (s *Server) resolveScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := r.Header.Get(transport.HeaderProtocolVersion)
		switch {
		case version == "":
			// Absent means oldest supported, per the protocol's
			// backward-compatibility rule.
			version = transport.DefaultProtocolVersion
		case !transport.IsSupportedProtocolVersion(version):
			s.logger.Warn("rejected unsupported protocol version",
				"version", version, "remote", r.RemoteAddr)
			s.write(w, transport.UnsupportedVersion(version))
			return
		}

		scope := transport.Scope{
			RequestID:       uuid.NewString(),
			SessionID:       r.Header.Get(transport.HeaderSessionID),
			ProtocolVersion: version,
		}
		next.ServeHTTP(w, r.WithContext(transport.WithScope(r.Context(), scope)))
	})
}

// attachIdentity copies the authenticated identity into the request scope so
// session creation records who owns the session.
func (s *Server) attachIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := auth.FromContext(r.Context())
		if ac == nil {
			next.ServeHTTP(w, r)
			return
		}
		scope := transport.ScopeFrom(r.Context())
		scope.ClientID = ac.ClientID
		scope.TenantID = ac.TenantID
		next.ServeHTTP(w, r.WithContext(transport.WithScope(r.Context(), scope)))
	})
}

// recoverPanics is the outermost safety net: a panic below becomes a logged
// JSON-RPC internal error instead of a dropped connection.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in request handler",
					"panic", rec, "method", r.Method, "path", r.URL.Path)
				s.write(w, transport.InternalError())
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// logRequests records one line per request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start))
	})
}

// handlePost reads the body, classifies the message, and routes it by the
// configured session mode. Handler-level Go errors stop at this boundary.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := transport.ScopeFrom(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		s.write(w, transport.NewErrorResponse(http.StatusBadRequest,
			transport.CodeParseError, "Failed to read request body", nil))
		return
	}
	if len(body) > maxRequestBody {
		s.write(w, transport.NewErrorResponse(http.StatusRequestEntityTooLarge,
			transport.CodeInvalidRequest, "Request body too large", nil))
		return
	}

	resp, err := s.dispatch(ctx, body, scope)
	if err != nil {
		s.logger.Error("request handling failed",
			"error", err, "request_id", scope.RequestID, "session_id", scope.SessionID)
		s.write(w, transport.InternalError())
		return
	}
	s.write(w, resp)
}

// dispatch routes one classified message. An initialize always gets a fresh
// candidate session id minted here, never one the client supplied, so clients
// cannot pick their own ids; the id only becomes real once the stateful
// manager registers it after a successful initialize.
func (s *Server) dispatch(ctx context.Context, body []byte, scope transport.Scope) (*transport.Response, error) {
	mode := s.cfg.Session.Mode

	switch req := transport.Classify(body, scope.SessionID).(type) {
	case transport.InitializeRequest:
		if mode == config.SessionStateless {
			return s.stateless.HandleRequest(ctx, body)
		}
		scope.SessionID = uuid.NewString()
		ctx = transport.WithScope(ctx, scope)
		return s.stateful.InitializeAndHandle(ctx, body)

	case transport.SessionedRequest:
		if mode == config.SessionStateless {
			return s.stateless.HandleRequest(ctx, body)
		}
		return s.stateful.HandleRequest(ctx, body, req.SessionID)

	default:
		// Anonymous non-initialize. A strict stateful service never serves
		// these; auto and stateless fall through to a one-shot handler.
		if mode == config.SessionStateful {
			return transport.SessionNotFound(), nil
		}
		return s.stateless.HandleRequest(ctx, body)
	}
}

// handleDelete terminates the request's session. Stateless deployments have
// nothing to terminate and acknowledge instead of erroring.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := transport.ScopeFrom(ctx)

	if s.cfg.Session.Mode == config.SessionStateless {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "No persistent sessions in stateless mode",
		})
		return
	}
	if scope.SessionID == "" {
		s.write(w, transport.NewErrorResponse(http.StatusBadRequest,
			transport.CodeInvalidRequest, "Missing Mcp-Session-Id header", nil))
		return
	}

	resp, err := s.stateful.HandleDelete(ctx, scope.SessionID)
	if err != nil {
		s.logger.Error("session delete failed", "error", err, "session_id", scope.SessionID)
		s.write(w, transport.InternalError())
		return
	}
	s.write(w, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusBody struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	Transport        string   `json:"transport"`
	SessionMode      string   `json:"session_mode"`
	ProtocolVersions []string `json:"protocol_versions"`
	ActiveSessions   int      `json:"active_sessions"`
}

// handleStatus reports server identity and session occupancy. The GET side
// of the MCP path is informational; protocol traffic is POST only.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusBody{
		Name:             serverName,
		Version:          s.version,
		Transport:        config.TransportHTTP,
		SessionMode:      s.cfg.Session.Mode,
		ProtocolVersions: transport.SupportedProtocolVersions,
		ActiveSessions:   s.sessions.Count(),
	})
}
