// Package asset moves fungible value between accounts.
//
// The funding services only need a single capability: Transfer, which either
// succeeds in full or fails without effect. Batch adds the multi-transfer
// rollback an operation needs when a later step fails.
package asset

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"

	"github.com/bitfsorg/matchfund-go/auth"
)

// Transferer moves amount of asset from one account to another.
// A call either moves the full amount or fails without effect.
type Transferer interface {
	Transfer(ctx context.Context, asset, from, to auth.Principal, amount big.Int) error
}

// Movement is a completed transfer.
type Movement struct {
	ID     string
	Asset  auth.Principal
	From   auth.Principal
	To     auth.Principal
	Amount big.Int
}

func validateTransfer(asset, from, to auth.Principal, amount big.Int) error {
	if asset == "" || from == "" || to == "" {
		return fmt.Errorf("%w: asset=%q from=%q to=%q", ErrInvalidAccount, asset, from, to)
	}
	if amount.Nil() || amount.Sign() < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return nil
}
