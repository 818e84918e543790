// Package auth identifies principals and checks that the caller of an
// operation is the principal the operation expects.
//
// A Principal is an account identifier (a Base58Check address). The funding
// services never authenticate callers themselves: they ask an Authorizer to
// verify that the caller recorded in the request context is a given
// principal, and fail otherwise.
package auth

import (
	"context"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
)

// Principal identifies an account: admin, contributor, beneficiary or custody.
type Principal string

// String returns the principal identifier.
func (p Principal) String() string { return string(p) }

// Authorizer verifies that the caller carried by ctx is principal p.
type Authorizer interface {
	Require(ctx context.Context, p Principal) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, p Principal) error

// Require calls f(ctx, p).
func (f AuthorizerFunc) Require(ctx context.Context, p Principal) error { return f(ctx, p) }

// AddressFromPublicKey returns the P2PKH address principal of pub.
func AddressFromPublicKey(pub *ec.PublicKey, mainnet bool) (Principal, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: public key", ErrNilParam)
	}
	addr, err := script.NewAddressFromPublicKey(pub, mainnet)
	if err != nil {
		return "", fmt.Errorf("auth: address from pubkey: %w", err)
	}
	return Principal(addr.AddressString), nil
}

// ParsePrincipal validates that s is a well-formed address.
func ParsePrincipal(s string) (Principal, error) {
	if s == "" {
		return "", ErrEmptyPrincipal
	}
	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return "", fmt.Errorf("auth: parse address %q: %w", s, err)
	}
	return Principal(addr.AddressString), nil
}

type callerKey struct{}

// WithCaller records a caller the host has already authenticated.
func WithCaller(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, callerKey{}, p)
}

// CallerFrom returns the caller recorded by WithCaller.
func CallerFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(callerKey{}).(Principal)
	return p, ok && p != ""
}

// TrustedHost trusts the caller identity placed in the context by WithCaller.
// Use it when authentication happens outside the process.
type TrustedHost struct{}

// Compile-time interface check.
var _ Authorizer = TrustedHost{}

// Require succeeds iff the context caller equals p.
func (TrustedHost) Require(ctx context.Context, p Principal) error {
	caller, ok := CallerFrom(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if caller != p {
		return fmt.Errorf("%w: caller %s, want %s", ErrPrincipalMismatch, caller, p)
	}
	return nil
}
