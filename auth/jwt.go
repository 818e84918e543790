package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type tokenKey struct{}

// WithToken attaches a bearer token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// JWTAuthorizer accepts HS256 tokens whose subject is the expected principal.
type JWTAuthorizer struct {
	secret []byte
}

// Compile-time interface check.
var _ Authorizer = (*JWTAuthorizer)(nil)

// NewJWTAuthorizer creates an authorizer verifying tokens signed with secret.
func NewJWTAuthorizer(secret []byte) *JWTAuthorizer {
	return &JWTAuthorizer{secret: secret}
}

// IssueToken signs a token for p that expires after ttl.
func (a *JWTAuthorizer) IssueToken(p Principal, ttl time.Duration) (string, error) {
	if p == "" {
		return "", ErrEmptyPrincipal
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   string(p),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Require verifies the token in ctx and checks its subject against p.
func (a *JWTAuthorizer) Require(ctx context.Context, p Principal) error {
	raw, ok := ctx.Value(tokenKey{}).(string)
	if !ok || raw == "" {
		return ErrUnauthenticated
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if Principal(sub) != p {
		return fmt.Errorf("%w: caller %s, want %s", ErrPrincipalMismatch, sub, p)
	}
	return nil
}
