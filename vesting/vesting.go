// Package vesting implements the Vesting & Distribution Service: deposits are
// credited directly to beneficiary allocations, and each claim cycle pays
// every beneficiary one twelfth of its allocation, for at most twelve cycles.
package vesting

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"

	"github.com/bitfsorg/matchfund-go/auth"
	"github.com/bitfsorg/matchfund-go/fund"
	"github.com/bitfsorg/matchfund-go/ledger"
)

const (
	// ServiceName labels logs and metrics of this service.
	ServiceName = "vesting"

	// MonthSeconds is the length of one claim cycle.
	MonthSeconds uint64 = 2629743
	// MaxPeriods is the number of cycles after which withdrawals pay nothing.
	MaxPeriods uint32 = 12
)

// Service is a Vesting & Distribution Service instance.
type Service struct {
	run *fund.Runner
}

// New creates a service over env.
func New(env fund.Env) (*Service, error) {
	run, err := fund.NewRunner(ServiceName, env)
	if err != nil {
		return nil, err
	}
	return &Service{run: run}, nil
}

// InitParams are the one-time settings of a vesting pool.
type InitParams struct {
	Admin         auth.Principal
	Asset         auth.Principal
	Beneficiaries []auth.Principal
	Deadline      uint64
}

// Init initializes the pool. The withdraw deadline starts at Deadline.
func (s *Service) Init(ctx context.Context, p InitParams) error {
	return s.run.Run(ctx, "init", func(o *fund.Op) error {
		o.With("admin", p.Admin).With("deadline", p.Deadline)
		if err := o.Require(p.Admin); err != nil {
			return err
		}
		done, err := fund.Initialized(o.Txn)
		if err != nil {
			return err
		}
		if done {
			return fund.ErrAlreadyInitialized
		}
		if err := fund.ValidateInit(o.Now(), p.Deadline, p.Beneficiaries); err != nil {
			return err
		}

		for _, kv := range []struct {
			key string
			val interface{}
		}{
			{fund.KeyAdmin, p.Admin},
			{fund.KeyAsset, p.Asset},
			{fund.KeyDeadline, p.Deadline},
			{fund.KeyWithdrawDeadline, p.Deadline},
			{fund.KeyFinalAssociations, fund.NewAllocations(p.Beneficiaries)},
			{fund.KeyTotal, big.Zero()},
			{fund.KeyClaimMonth, uint32(0)},
			{fund.KeyClaimed, false},
		} {
			if err := fund.Save(o.Txn, kv.key, kv.val); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddAssociation registers another beneficiary with a zero allocation.
func (s *Service) AddAssociation(ctx context.Context, admin, beneficiary auth.Principal) error {
	return s.run.Run(ctx, "add_association", func(o *fund.Op) error {
		o.With("beneficiary", beneficiary)
		if err := o.RequireAdmin(admin); err != nil {
			return err
		}
		var deadline uint64
		if err := fund.Load(o.Txn, fund.KeyDeadline, &deadline); err != nil {
			return err
		}
		if err := fund.CheckRegistrationOpen(o.Now(), deadline); err != nil {
			return err
		}

		allocs, err := loadAllocations(o.Txn)
		if err != nil {
			return err
		}
		allocs = append(allocs, fund.NewAllocations([]auth.Principal{beneficiary})...)
		return fund.Save(o.Txn, fund.KeyFinalAssociations, allocs)
	})
}

// Deposit credits amount to the first allocation of beneficiary. No funds
// move; the custody account is expected to be funded out of band.
func (s *Service) Deposit(ctx context.Context, beneficiary auth.Principal, amount int64) error {
	return s.run.Run(ctx, "deposit", func(o *fund.Op) error {
		o.With("beneficiary", beneficiary).With("amount", amount)
		var deadline uint64
		if err := fund.Load(o.Txn, fund.KeyDeadline, &deadline); err != nil {
			return err
		}
		if err := fund.CheckDepositOpen(o.Now(), deadline); err != nil {
			return err
		}
		if amount <= 0 {
			return fmt.Errorf("%w: deposit of %d", fund.ErrInvalidAmount, amount)
		}

		allocs, err := loadAllocations(o.Txn)
		if err != nil {
			return err
		}
		i := fund.IndexOf(allocs, beneficiary)
		if i < 0 {
			return fmt.Errorf("%w: %s is not registered", fund.ErrInvalidAssociation, beneficiary)
		}
		allocs[i].Amount = big.Add(allocs[i].Amount, big.NewInt(amount))

		var total fund.Amount
		if err := fund.Load(o.Txn, fund.KeyTotal, &total); err != nil {
			return err
		}
		if err := fund.Save(o.Txn, fund.KeyFinalAssociations, allocs); err != nil {
			return err
		}
		return fund.Save(o.Txn, fund.KeyTotal, big.Add(total, big.NewInt(amount)))
	})
}

// Withdraw pays one period: every beneficiary not yet paid this cycle
// receives floor(allocation/12) from custody. Once twelve periods were paid
// it succeeds without paying or changing anything.
func (s *Service) Withdraw(ctx context.Context, admin auth.Principal) error {
	return s.run.Run(ctx, "withdraw", func(o *fund.Op) error {
		if err := o.RequireAdmin(admin); err != nil {
			return err
		}
		var claimed bool
		if err := fund.Load(o.Txn, fund.KeyClaimed, &claimed); err != nil {
			return err
		}
		if claimed {
			return fund.ErrAlreadyWithdrawn
		}
		var month uint32
		if err := fund.Load(o.Txn, fund.KeyClaimMonth, &month); err != nil {
			return err
		}
		o.With("claim_month", month)
		if month >= MaxPeriods {
			return nil
		}

		allocs, err := loadAllocations(o.Txn)
		if err != nil {
			return err
		}
		var assetID auth.Principal
		if err := fund.Load(o.Txn, fund.KeyAsset, &assetID); err != nil {
			return err
		}
		periods := big.NewInt(int64(MaxPeriods))
		for i := range allocs {
			if allocs[i].HasWithdrawn {
				continue
			}
			share := big.Div(allocs[i].Amount, periods)
			if err := o.Transfer(assetID, o.Custody(), allocs[i].Name, share); err != nil {
				return err
			}
			allocs[i].HasWithdrawn = true
		}

		if err := fund.Save(o.Txn, fund.KeyFinalAssociations, allocs); err != nil {
			return err
		}
		if err := fund.Save(o.Txn, fund.KeyClaimMonth, month+1); err != nil {
			return err
		}
		return fund.Save(o.Txn, fund.KeyClaimed, true)
	})
}

// ResetDeadline opens the next claim cycle. While the current cycle is
// claimed it fails until the withdraw deadline has passed. The claim month
// is never rolled back.
func (s *Service) ResetDeadline(ctx context.Context, admin auth.Principal) error {
	return s.run.Run(ctx, "reset_deadline", func(o *fund.Op) error {
		if err := o.RequireAdmin(admin); err != nil {
			return err
		}
		var (
			claimed  bool
			deadline uint64
		)
		if err := fund.Load(o.Txn, fund.KeyClaimed, &claimed); err != nil {
			return err
		}
		if err := fund.Load(o.Txn, fund.KeyWithdrawDeadline, &deadline); err != nil {
			return err
		}
		if claimed && deadline > o.Now() {
			return fmt.Errorf("%w: cycle claimed until %d", fund.ErrInvalidTimestamp, deadline)
		}

		allocs, err := loadAllocations(o.Txn)
		if err != nil {
			return err
		}
		for i := range allocs {
			allocs[i].HasWithdrawn = false
		}
		o.With("deadline_withdraw", deadline+MonthSeconds)
		if err := fund.Save(o.Txn, fund.KeyFinalAssociations, allocs); err != nil {
			return err
		}
		if err := fund.Save(o.Txn, fund.KeyWithdrawDeadline, deadline+MonthSeconds); err != nil {
			return err
		}
		return fund.Save(o.Txn, fund.KeyClaimed, false)
	})
}

func loadAllocations(r ledger.Reader) ([]fund.Allocation, error) {
	var allocs []fund.Allocation
	if err := fund.Load(r, fund.KeyFinalAssociations, &allocs); err != nil {
		return nil, err
	}
	return allocs, nil
}

func (s *Service) load(key string, v interface{}) error {
	return s.run.View(func(r ledger.Reader) error { return fund.Load(r, key, v) })
}

// Allocations returns the per-beneficiary allocations and withdrawn flags.
func (s *Service) Allocations() ([]fund.Allocation, error) {
	var allocs []fund.Allocation
	err := s.run.View(func(r ledger.Reader) error {
		var err error
		allocs, err = loadAllocations(r)
		return err
	})
	return allocs, err
}

// Total returns the sum of all deposits.
func (s *Service) Total() (fund.Amount, error) {
	var total fund.Amount
	err := s.load(fund.KeyTotal, &total)
	return total, err
}

// Deadline returns the deposit deadline.
func (s *Service) Deadline() (uint64, error) {
	var v uint64
	err := s.load(fund.KeyDeadline, &v)
	return v, err
}

// WithdrawDeadline returns the end of the current claim cycle.
func (s *Service) WithdrawDeadline() (uint64, error) {
	var v uint64
	err := s.load(fund.KeyWithdrawDeadline, &v)
	return v, err
}

// ClaimMonth returns the number of periods paid so far.
func (s *Service) ClaimMonth() (uint32, error) {
	var v uint32
	err := s.load(fund.KeyClaimMonth, &v)
	return v, err
}

// Claimed reports whether the current cycle was paid.
func (s *Service) Claimed() (bool, error) {
	var v bool
	err := s.load(fund.KeyClaimed, &v)
	return v, err
}

// Admin returns the admin principal.
func (s *Service) Admin() (auth.Principal, error) {
	var p auth.Principal
	err := s.load(fund.KeyAdmin, &p)
	return p, err
}
