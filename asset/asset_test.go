package asset

import (
	"context"
	"errors"
	"testing"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/matchfund-go/auth"
)

const xlm auth.Principal = "asset-xlm"

func fundedBank(t *testing.T, owner auth.Principal, amount int64) *MemBank {
	t.Helper()
	b := NewMemBank()
	require.NoError(t, b.Mint(xlm, owner, big.NewInt(amount)))
	return b
}

// ---------------------------------------------------------------------------
// MemBank
// ---------------------------------------------------------------------------

func TestMemBank_Transfer(t *testing.T) {
	b := fundedBank(t, "alice", 100)

	require.NoError(t, b.Transfer(context.Background(), xlm, "alice", "bob", big.NewInt(30)))

	assert.True(t, b.Balance(xlm, "alice").Equals(big.NewInt(70)))
	assert.True(t, b.Balance(xlm, "bob").Equals(big.NewInt(30)))

	journal := b.Journal()
	require.Len(t, journal, 1)
	assert.NotEmpty(t, journal[0].ID)
	assert.Equal(t, auth.Principal("alice"), journal[0].From)
	assert.Equal(t, auth.Principal("bob"), journal[0].To)
}

func TestMemBank_InsufficientFundsHasNoEffect(t *testing.T) {
	b := fundedBank(t, "alice", 10)

	err := b.Transfer(context.Background(), xlm, "alice", "bob", big.NewInt(11))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, b.Balance(xlm, "alice").Equals(big.NewInt(10)))
	assert.True(t, b.Balance(xlm, "bob").IsZero())
	assert.Empty(t, b.Journal())
}

func TestMemBank_ZeroTransfer(t *testing.T) {
	b := NewMemBank()
	require.NoError(t, b.Transfer(context.Background(), xlm, "alice", "bob", big.Zero()))
	assert.Len(t, b.Journal(), 1)
}

func TestMemBank_InvalidInputs(t *testing.T) {
	b := fundedBank(t, "alice", 10)
	ctx := context.Background()

	assert.ErrorIs(t, b.Transfer(ctx, xlm, "alice", "bob", big.NewInt(-1)), ErrInvalidAmount)
	assert.ErrorIs(t, b.Transfer(ctx, xlm, "", "bob", big.NewInt(1)), ErrInvalidAccount)
	assert.ErrorIs(t, b.Transfer(ctx, "", "alice", "bob", big.NewInt(1)), ErrInvalidAccount)
	assert.ErrorIs(t, b.Mint(xlm, "alice", big.NewInt(-5)), ErrInvalidAmount)
}

func TestMemBank_AssetsAreSeparate(t *testing.T) {
	b := fundedBank(t, "alice", 10)
	err := b.Transfer(context.Background(), "asset-usdc", "alice", "bob", big.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestMemBank_CancelledContext(t *testing.T) {
	b := fundedBank(t, "alice", 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Transfer(ctx, xlm, "alice", "bob", big.NewInt(1)), context.Canceled)
}

// ---------------------------------------------------------------------------
// Batch
// ---------------------------------------------------------------------------

func TestBatch_CompensateRestoresBalances(t *testing.T) {
	b := fundedBank(t, "custody", 100)
	batch := NewBatch(b)
	ctx := context.Background()

	require.NoError(t, batch.Transfer(ctx, xlm, "custody", "a", big.NewInt(10)))
	require.NoError(t, batch.Transfer(ctx, xlm, "custody", "b", big.NewInt(20)))
	assert.True(t, batch.Total().Equals(big.NewInt(30)))
	assert.Len(t, batch.Executed(), 2)

	require.NoError(t, batch.Compensate(ctx))

	assert.True(t, b.Balance(xlm, "custody").Equals(big.NewInt(100)))
	assert.True(t, b.Balance(xlm, "a").IsZero())
	assert.True(t, b.Balance(xlm, "b").IsZero())
	assert.Empty(t, batch.Executed())

	// Journal shows the reversals newest first.
	journal := b.Journal()
	require.Len(t, journal, 4)
	assert.Equal(t, auth.Principal("b"), journal[2].From)
	assert.Equal(t, auth.Principal("a"), journal[3].From)
}

func TestBatch_FailedTransferNotRecorded(t *testing.T) {
	batch := NewBatch(NewMemBank())
	err := batch.Transfer(context.Background(), xlm, "empty", "a", big.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Empty(t, batch.Executed())
}

func TestBatch_CompensationFailureReported(t *testing.T) {
	calls := 0
	mock := &MockTransferer{
		TransferFn: func(ctx context.Context, asset, from, to auth.Principal, amount big.Int) error {
			calls++
			if calls > 1 {
				return errors.New("ledger offline")
			}
			return nil
		},
	}
	batch := NewBatch(mock)
	require.NoError(t, batch.Transfer(context.Background(), xlm, "x", "y", big.NewInt(1)))

	err := batch.Compensate(context.Background())
	assert.ErrorIs(t, err, ErrCompensation)
	assert.Contains(t, err.Error(), "ledger offline")
}
