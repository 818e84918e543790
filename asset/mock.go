package asset

import (
	"context"

	"github.com/filecoin-project/go-state-types/big"

	"github.com/bitfsorg/matchfund-go/auth"
)

// MockTransferer is a test double for Transferer.
// TransferFn must be set before Transfer is called.
type MockTransferer struct {
	TransferFn func(ctx context.Context, asset, from, to auth.Principal, amount big.Int) error
}

func (m *MockTransferer) Transfer(ctx context.Context, asset, from, to auth.Principal, amount big.Int) error {
	return m.TransferFn(ctx, asset, from, to, amount)
}
