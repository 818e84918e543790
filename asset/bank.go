package asset

import (
	"context"
	"fmt"
	"sync"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/google/uuid"

	"github.com/bitfsorg/matchfund-go/auth"
)

type account struct {
	asset auth.Principal
	owner auth.Principal
}

// MemBank is an in-memory Transferer that keeps balances per asset and account
// and a journal of every movement.
type MemBank struct {
	mu       sync.RWMutex
	balances map[account]big.Int
	journal  []Movement
}

// Compile-time interface check.
var _ Transferer = (*MemBank)(nil)

// NewMemBank creates an empty bank.
func NewMemBank() *MemBank {
	return &MemBank{balances: make(map[account]big.Int)}
}

// Mint credits amount of asset to owner out of thin air.
func (b *MemBank) Mint(asset, owner auth.Principal, amount big.Int) error {
	if asset == "" || owner == "" {
		return fmt.Errorf("%w: asset=%q owner=%q", ErrInvalidAccount, asset, owner)
	}
	if amount.Nil() || amount.Sign() < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	key := account{asset, owner}
	b.balances[key] = big.Add(b.balanceLocked(key), amount)
	return nil
}

// Balance returns the balance of owner in asset.
func (b *MemBank) Balance(asset, owner auth.Principal) big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balanceLocked(account{asset, owner})
}

func (b *MemBank) balanceLocked(key account) big.Int {
	bal, ok := b.balances[key]
	if !ok {
		return big.Zero()
	}
	return bal
}

// Transfer debits from and credits to, or fails with ErrInsufficientFunds
// leaving both balances unchanged.
func (b *MemBank) Transfer(ctx context.Context, asset, from, to auth.Principal, amount big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTransfer(asset, from, to, amount); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	src := account{asset, from}
	dst := account{asset, to}
	have := b.balanceLocked(src)
	if have.LessThan(amount) {
		return fmt.Errorf("%w: %s holds %v, needs %v", ErrInsufficientFunds, from, have, amount)
	}
	b.balances[src] = big.Sub(have, amount)
	b.balances[dst] = big.Add(b.balanceLocked(dst), amount)
	b.journal = append(b.journal, Movement{
		ID:     uuid.NewString(),
		Asset:  asset,
		From:   from,
		To:     to,
		Amount: amount,
	})
	return nil
}

// Journal returns a copy of all movements in execution order.
func (b *MemBank) Journal() []Movement {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Movement, len(b.journal))
	copy(out, b.journal)
	return out
}
