// ABOUTME: Unit tests for JWT token verification and generation
// ABOUTME: Tests valid tokens, claim extraction, invalid tokens, and expiry

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// testSecret is a 32-byte secret meeting the MinSecretLength requirement.
var testSecret = []byte("unit-test-secret-key-32-bytes-ok")

func newTestVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}
	return v
}

func TestNewJWTVerifier_SecretTooShort(t *testing.T) {
	_, err := NewJWTVerifier([]byte("short"))
	if !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("NewJWTVerifier() error = %v, want ErrSecretTooShort", err)
	}
}

func TestJWTVerifier_ValidToken(t *testing.T) {
	verifier := newTestVerifier(t)

	token, err := verifier.Generate("client-123", "tenant-abc", []string{"repo:read", "repo:write"}, time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if claims.ClientID != "client-123" {
		t.Errorf("ClientID = %q, want %q", claims.ClientID, "client-123")
	}
	if claims.TenantID != "tenant-abc" {
		t.Errorf("TenantID = %q, want %q", claims.TenantID, "tenant-abc")
	}
	if len(claims.Scopes) != 2 || claims.Scopes[0] != "repo:read" || claims.Scopes[1] != "repo:write" {
		t.Errorf("Scopes = %v, want [repo:read repo:write]", claims.Scopes)
	}
}

func TestJWTVerifier_MinimalClaims(t *testing.T) {
	verifier := newTestVerifier(t)

	token, err := verifier.Generate("client-123", "", nil, time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if claims.ClientID != "client-123" {
		t.Errorf("ClientID = %q, want %q", claims.ClientID, "client-123")
	}
	if claims.TenantID != "" {
		t.Errorf("TenantID = %q, want empty", claims.TenantID)
	}
	if len(claims.Scopes) != 0 {
		t.Errorf("Scopes = %v, want empty", claims.Scopes)
	}
}

func TestJWTVerifier_InvalidToken(t *testing.T) {
	verifier := newTestVerifier(t)

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "empty token",
			token: "",
		},
		{
			name:  "garbage token",
			token: "not-a-jwt-token",
		},
		{
			name:  "malformed JWT",
			token: "header.payload.signature",
		},
		{
			name: "wrong secret",
			token: func() string {
				other, _ := NewJWTVerifier([]byte("a-completely-different-secret-32b"))
				token, _ := other.Generate("client-123", "", nil, time.Hour)
				return token
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token)
			if err == nil {
				t.Error("Verify() should have returned an error")
			}
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	verifier := newTestVerifier(t)

	// Generate a token that expired 1 hour ago
	token, err := verifier.Generate("client-123", "", nil, -time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestJWTVerifier_MissingSubClaim(t *testing.T) {
	verifier := newTestVerifier(t)

	// Sign a token with no sub claim at all
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := raw.SignedString(testSecret)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrMissingClaim) {
		t.Errorf("Verify() error = %v, want ErrMissingClaim", err)
	}
}

func TestJWTVerifier_RejectsUnexpectedSigningMethod(t *testing.T) {
	verifier := newTestVerifier(t)

	// "none" algorithm tokens must never verify
	raw := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "client-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Error("Verify() should reject alg=none tokens")
	}
}
