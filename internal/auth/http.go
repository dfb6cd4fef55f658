// ABOUTME: HTTP middleware for JWT authentication on the MCP endpoint
// ABOUTME: Extracts the bearer token and adds the identity to the request context

package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Middleware creates an HTTP middleware that validates bearer tokens with
// the verifier and attaches the resulting AuthContext to the request
// context. Rejections are JSON-RPC shaped so that protocol clients parse
// auth failures the same way as every other error.
func Middleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeUnauthorized(w, errMsg)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeUnauthorized(w, "invalid token")
				return
			}

			authCtx := &AuthContext{
				ClientID: claims.ClientID,
				TenantID: claims.TenantID,
				Scopes:   claims.Scopes,
			}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}

// writeUnauthorized writes a JSON-RPC shaped 401 with a null id.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    -32600,
			"message": "Unauthorized: " + msg,
		},
		"id": nil,
	})
}
