package auth

import (
	"context"
	"fmt"
	"sync"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

// challengeDomain separates call challenges from any other signed message.
const challengeDomain = "matchfund-call:"

// SignedCall proves control of the key behind a principal for one call.
type SignedCall struct {
	PublicKey *ec.PublicKey
	Signature *ec.Signature
	Nonce     string
}

// Challenge returns the digest a caller signs to act as p:
// SHA256d("matchfund-call:" || p || ":" || nonce).
func Challenge(p Principal, nonce string) []byte {
	return bsvhash.Sha256d([]byte(challengeDomain + string(p) + ":" + nonce))
}

// SignCall signs a call challenge for the address of priv.
func SignCall(priv *ec.PrivateKey, nonce string, mainnet bool) (SignedCall, error) {
	if priv == nil {
		return SignedCall{}, fmt.Errorf("%w: private key", ErrNilParam)
	}
	p, err := AddressFromPublicKey(priv.PubKey(), mainnet)
	if err != nil {
		return SignedCall{}, err
	}
	sig, err := priv.Sign(Challenge(p, nonce))
	if err != nil {
		return SignedCall{}, fmt.Errorf("auth: sign challenge: %w", err)
	}
	return SignedCall{PublicKey: priv.PubKey(), Signature: sig, Nonce: nonce}, nil
}

type signedCallKey struct{}

// WithSignedCall attaches a signed call to ctx.
func WithSignedCall(ctx context.Context, call SignedCall) context.Context {
	return context.WithValue(ctx, signedCallKey{}, call)
}

// SignatureAuthorizer accepts a caller that signed the call challenge with the
// key whose address is the expected principal. Each nonce is accepted once.
type SignatureAuthorizer struct {
	mainnet bool

	mu   sync.Mutex
	used map[string]struct{}
}

// Compile-time interface check.
var _ Authorizer = (*SignatureAuthorizer)(nil)

// NewSignatureAuthorizer creates an authorizer for mainnet or testnet addresses.
func NewSignatureAuthorizer(mainnet bool) *SignatureAuthorizer {
	return &SignatureAuthorizer{mainnet: mainnet, used: make(map[string]struct{})}
}

// Require verifies the signed call in ctx against p and consumes its nonce.
func (a *SignatureAuthorizer) Require(ctx context.Context, p Principal) error {
	call, ok := ctx.Value(signedCallKey{}).(SignedCall)
	if !ok || call.PublicKey == nil || call.Signature == nil {
		return ErrUnauthenticated
	}

	caller, err := AddressFromPublicKey(call.PublicKey, a.mainnet)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if caller != p {
		return fmt.Errorf("%w: caller %s, want %s", ErrPrincipalMismatch, caller, p)
	}
	if !call.Signature.Verify(Challenge(p, call.Nonce), call.PublicKey) {
		return ErrBadSignature
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	replayKey := string(p) + ":" + call.Nonce
	if _, seen := a.used[replayKey]; seen {
		return fmt.Errorf("%w: %s", ErrNonceReused, call.Nonce)
	}
	a.used[replayKey] = struct{}{}
	return nil
}
