package asset

import "errors"

var (
	// ErrInsufficientFunds indicates the source account cannot cover the transfer.
	ErrInsufficientFunds = errors.New("asset: insufficient funds")

	// ErrInvalidAmount indicates a negative or nil transfer amount.
	ErrInvalidAmount = errors.New("asset: invalid amount")

	// ErrInvalidAccount indicates an empty account or asset identifier.
	ErrInvalidAccount = errors.New("asset: invalid account")

	// ErrCompensation indicates a compensating transfer failed during rollback.
	ErrCompensation = errors.New("asset: compensation failed")
)
