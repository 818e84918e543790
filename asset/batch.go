package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"

	"github.com/bitfsorg/matchfund-go/auth"
)

// Batch executes transfers through a Transferer and remembers the ones that
// succeeded so they can be reversed if the enclosing operation fails.
type Batch struct {
	inner Transferer
	done  []Movement
}

// NewBatch creates an empty batch over inner.
func NewBatch(inner Transferer) *Batch {
	return &Batch{inner: inner}
}

// Transfer executes one transfer and records it on success.
func (b *Batch) Transfer(ctx context.Context, asset, from, to auth.Principal, amount big.Int) error {
	if err := b.inner.Transfer(ctx, asset, from, to, amount); err != nil {
		return err
	}
	b.done = append(b.done, Movement{Asset: asset, From: from, To: to, Amount: amount})
	return nil
}

// Executed returns the transfers performed so far.
func (b *Batch) Executed() []Movement {
	out := make([]Movement, len(b.done))
	copy(out, b.done)
	return out
}

// Total returns the sum of all executed amounts.
func (b *Batch) Total() big.Int {
	total := big.Zero()
	for _, m := range b.done {
		total = big.Add(total, m.Amount)
	}
	return total
}

// Compensate reverses every executed transfer, newest first. It keeps going
// after a failed reversal and reports all failures joined under ErrCompensation.
func (b *Batch) Compensate(ctx context.Context) error {
	var errs []error
	for i := len(b.done) - 1; i >= 0; i-- {
		m := b.done[i]
		// Rollback must run even when the caller's context is already done.
		if err := b.inner.Transfer(context.WithoutCancel(ctx), m.Asset, m.To, m.From, m.Amount); err != nil {
			errs = append(errs, fmt.Errorf("reverse %s -> %s (%v): %w", m.From, m.To, m.Amount, err))
		}
	}
	b.done = nil
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrCompensation, errors.Join(errs...))
	}
	return nil
}
