// ABOUTME: Tests for auth context propagation through context.Context
// ABOUTME: Covers WithAuth/FromContext round-trips and absent-context behavior

package auth

import (
	"context"
	"testing"
)

func TestWithAuth_FromContext_RoundTrip(t *testing.T) {
	authCtx := &AuthContext{
		ClientID: "client-123",
		TenantID: "tenant-abc",
		Scopes:   []string{"repo:read", "repo:write"},
	}

	ctx := WithAuth(context.Background(), authCtx)
	got := FromContext(ctx)

	if got == nil {
		t.Fatal("FromContext() returned nil")
	}
	if got.ClientID != "client-123" {
		t.Errorf("ClientID = %q, want %q", got.ClientID, "client-123")
	}
	if got.TenantID != "tenant-abc" {
		t.Errorf("TenantID = %q, want %q", got.TenantID, "tenant-abc")
	}
	if len(got.Scopes) != 2 || got.Scopes[0] != "repo:read" || got.Scopes[1] != "repo:write" {
		t.Errorf("Scopes = %v, want [repo:read repo:write]", got.Scopes)
	}
}

func TestFromContext_Absent(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("FromContext() on empty context = %v, want nil", got)
	}
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), authContextKey{}, "not-an-auth-context")
	if got := FromContext(ctx); got != nil {
		t.Errorf("FromContext() with wrong type = %v, want nil", got)
	}
}
