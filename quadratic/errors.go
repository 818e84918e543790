package quadratic

import "errors"

var (
	// ErrZeroTotalWeight indicates every beneficiary has zero weight, so no
	// proportional split exists.
	ErrZeroTotalWeight = errors.New("quadratic: total weight is zero")

	// ErrNegativePool indicates a negative pool size.
	ErrNegativePool = errors.New("quadratic: negative pool")

	// ErrUnknownPolicy indicates an unrecognized rounding policy.
	ErrUnknownPolicy = errors.New("quadratic: unknown rounding policy")
)
