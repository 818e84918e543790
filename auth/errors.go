package auth

import "errors"

var (
	// ErrUnauthenticated indicates the context carries no usable caller credential.
	ErrUnauthenticated = errors.New("auth: caller not authenticated")

	// ErrPrincipalMismatch indicates the authenticated caller is not the expected principal.
	ErrPrincipalMismatch = errors.New("auth: caller does not match principal")

	// ErrBadSignature indicates the caller signature does not verify.
	ErrBadSignature = errors.New("auth: signature verification failed")

	// ErrNonceReused indicates a signed call nonce was already consumed.
	ErrNonceReused = errors.New("auth: nonce already used")

	// ErrInvalidToken indicates a bearer token failed verification.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrEmptyPrincipal indicates an empty principal identifier.
	ErrEmptyPrincipal = errors.New("auth: empty principal")

	// ErrInvalidSeed indicates a custody seed that is empty or too short.
	ErrInvalidSeed = errors.New("auth: custody seed must be at least 16 bytes")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("auth: nil parameter")
)
