// ABOUTME: JWT bearer-token verification for authenticating HTTP requests
// ABOUTME: Uses HS256 signing with a configurable secret

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the smallest HS256 secret accepted, in bytes.
const MinSecretLength = 32

// Token errors
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrMissingClaim   = errors.New("missing required claim")
	ErrSecretTooShort = errors.New("jwt secret too short")
)

// Claims is the verified identity a token carries.
type Claims struct {
	ClientID string
	TenantID string
	Scopes   []string
}

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a new JWT verifier with the given secret.
func NewJWTVerifier(secret []byte) (*JWTVerifier, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrSecretTooShort, MinSecretLength)
	}
	return &JWTVerifier{secret: secret}, nil
}

// Verify validates the token and extracts the identity claims. The "sub"
// claim is required; "tid" and "scope" are optional.
func (v *JWTVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		// Check if it's specifically an expiration error
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	out := &Claims{ClientID: sub}
	if tid, ok := claims["tid"].(string); ok {
		out.TenantID = tid
	}
	if scope, ok := claims["scope"].(string); ok && scope != "" {
		out.Scopes = strings.Fields(scope)
	}
	return out, nil
}

// Generate creates a signed token for the given identity with expiration.
func (v *JWTVerifier) Generate(clientID, tenantID string, scopes []string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": clientID,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}
	if tenantID != "" {
		claims["tid"] = tenantID
	}
	if len(scopes) > 0 {
		claims["scope"] = strings.Join(scopes, " ")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
