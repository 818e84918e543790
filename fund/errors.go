package fund

import "errors"

var (
	// ErrInvalidAuth indicates the caller lacks the required authorization or
	// is not the configured admin.
	ErrInvalidAuth = errors.New("fund: invalid auth")

	// ErrInvalidAmount indicates a non-positive deposit, a negative pool or a
	// degenerate zero-weight calculation.
	ErrInvalidAmount = errors.New("fund: invalid amount")

	// ErrInvalidTimestamp indicates a deadline already in the past at init, or
	// an operation attempted outside its valid time window.
	ErrInvalidTimestamp = errors.New("fund: invalid timestamp")

	// ErrInvalidAssociation indicates an empty beneficiary set, an unknown
	// beneficiary, or registration after the deadline.
	ErrInvalidAssociation = errors.New("fund: invalid association")

	// ErrAlreadyWithdrawn indicates a second claim within the same cycle.
	ErrAlreadyWithdrawn = errors.New("fund: already withdrawn")

	// ErrAlreadyInitialized indicates a second init of the same service.
	ErrAlreadyInitialized = errors.New("fund: already initialized")

	// ErrNotInitialized indicates an operation on a service that was never initialized.
	ErrNotInitialized = errors.New("fund: not initialized")

	// ErrNotCalculated indicates a payout attempted before any allocation was calculated.
	ErrNotCalculated = errors.New("fund: allocation not calculated")

	// ErrInvalidEnv indicates a missing capability in Env.
	ErrInvalidEnv = errors.New("fund: invalid environment")
)
