// Package collection implements the Collection & Allocation Service.
//
// Contributors deposit funds for named beneficiaries until the deadline. The
// admin then runs the quadratic-funding calculation over the recorded
// contributions and pays the pooled total out to the disbursement account in
// a single withdrawal per claim cycle.
package collection

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-state-types/big"

	"github.com/bitfsorg/matchfund-go/auth"
	"github.com/bitfsorg/matchfund-go/fund"
	"github.com/bitfsorg/matchfund-go/quadratic"
)

// ServiceName labels logs and metrics of this service.
const ServiceName = "collection"

// Service is a Collection & Allocation Service instance.
type Service struct {
	run    *fund.Runner
	policy quadratic.Policy
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy selects the rounding policy of CalculateFunding.
// The default is quadratic.TruncateThenScale.
func WithPolicy(p quadratic.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// New creates a service over env.
func New(env fund.Env, opts ...Option) (*Service, error) {
	run, err := fund.NewRunner(ServiceName, env)
	if err != nil {
		return nil, err
	}
	s := &Service{run: run, policy: quadratic.TruncateThenScale}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// InitParams are the one-time settings of a collection.
type InitParams struct {
	Admin         auth.Principal
	Asset         auth.Principal
	Beneficiaries []auth.Principal
	Deadline      uint64
	Disbursement  auth.Principal // receives the pooled total on Withdraw
}

// Init initializes the collection. It requires the admin's authorization and
// fails with fund.ErrAlreadyInitialized on any later call.
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
			{fund.KeyAssociations, fund.NewBeneficiaries(p.Beneficiaries)},
			{fund.KeyFinalAssociations, []fund.Allocation{}},
			{fund.KeyTotal, big.Zero()},
			{fund.KeyClaimed, false},
			{fund.KeyDisbursement, p.Disbursement},
		} {
			if err := fund.Save(o.Txn, kv.key, kv.val); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddAssociation registers another beneficiary. Registering a name twice
// creates a second, independent record.
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

		var assocs []fund.Beneficiary
		if err := fund.Load(o.Txn, fund.KeyAssociations, &assocs); err != nil {
			return err
		}
		assocs = append(assocs, fund.NewBeneficiaries([]auth.Principal{beneficiary})...)
		return fund.Save(o.Txn, fund.KeyAssociations, assocs)
	})
}

// Deposit records amount for beneficiary and moves it from contributor into
// custody. If the transfer fails nothing is recorded.
func (s *Service) Deposit(ctx context.Context, beneficiary, contributor auth.Principal, amount int64) error {
	return s.run.Run(ctx, "deposit", func(o *fund.Op) error {
		o.With("beneficiary", beneficiary).With("contributor", contributor).With("amount", amount)
		if err := o.Require(contributor); err != nil {
			return err
		}
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

		var assocs []fund.Beneficiary
		if err := fund.Load(o.Txn, fund.KeyAssociations, &assocs); err != nil {
			return err
		}
		i := fund.IndexOf(assocs, beneficiary)
		if i < 0 {
			return fmt.Errorf("%w: %s is not registered", fund.ErrInvalidAssociation, beneficiary)
		}
		assocs[i].Contributions = append(assocs[i].Contributions, amount)

		var total fund.Amount
		if err := fund.Load(o.Txn, fund.KeyTotal, &total); err != nil {
			return err
		}
		total = big.Add(total, big.NewInt(amount))

		var assetID auth.Principal
		if err := fund.Load(o.Txn, fund.KeyAsset, &assetID); err != nil {
			return err
		}
		if err := o.Transfer(assetID, contributor, o.Custody(), big.NewInt(amount)); err != nil {
			return err
		}

		if err := fund.Save(o.Txn, fund.KeyAssociations, assocs); err != nil {
			return err
		}
		return fund.Save(o.Txn, fund.KeyTotal, total)
	})
}

// CalculateFunding replaces the final allocations with the quadratic-funding
// split of the current pool. Calling it again on the same ledger yields the
// same allocations.
func (s *Service) CalculateFunding(ctx context.Context, admin auth.Principal) error {
	return s.run.Run(ctx, "calculate_funding", func(o *fund.Op) error {
		o.With("policy", s.policy.String())
		if err := o.RequireAdmin(admin); err != nil {
			return err
		}

		var assocs []fund.Beneficiary
		if err := fund.Load(o.Txn, fund.KeyAssociations, &assocs); err != nil {
			return err
		}
		var pool fund.Amount
		if err := fund.Load(o.Txn, fund.KeyTotal, &pool); err != nil {
			return err
		}

		contribs := make([][]int64, len(assocs))
		for i, a := range assocs {
			contribs[i] = a.Contributions
		}
		amounts, err := quadratic.Allocate(contribs, pool, s.policy)
		if err != nil {
			return fmt.Errorf("%w: %w", fund.ErrInvalidAmount, err)
		}

		final := make([]fund.Allocation, len(assocs))
		for i, a := range assocs {
			final[i] = fund.Allocation{Name: a.Name, Amount: amounts[i]}
		}
		o.With("pool", pool.String()).With("unallocated", quadratic.Remainder(amounts, pool).String())
		return fund.Save(o.Txn, fund.KeyFinalAssociations, final)
	})
}

// Withdraw pays the pooled total from custody to the disbursement account.
// It succeeds once per claim cycle; EndFunding opens the next cycle.
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
		var final []fund.Allocation
		if err := fund.Load(o.Txn, fund.KeyFinalAssociations, &final); err != nil {
			return err
		}
		if len(final) == 0 {
			return fund.ErrNotCalculated
		}

		var (
			total        fund.Amount
			assetID      auth.Principal
			disbursement auth.Principal
		)
		if err := fund.Load(o.Txn, fund.KeyTotal, &total); err != nil {
			return err
		}
		if err := fund.Load(o.Txn, fund.KeyAsset, &assetID); err != nil {
			return err
		}
		if err := fund.Load(o.Txn, fund.KeyDisbursement, &disbursement); err != nil {
			return err
		}
		o.With("disbursement", disbursement).With("amount", total.String())
		if err := o.Transfer(assetID, o.Custody(), disbursement, total); err != nil {
			return err
		}
		return fund.Save(o.Txn, fund.KeyClaimed, true)
	})
}

// EndFunding opens a new round once allocations exist: the deadline moves to
// now and the claim flag is cleared. Without allocations it changes nothing.
func (s *Service) EndFunding(ctx context.Context, admin auth.Principal) error {
	return s.run.Run(ctx, "end_funding", func(o *fund.Op) error {
		if err := o.RequireAdmin(admin); err != nil {
			return err
		}
		var total fund.Amount
		if err := fund.Load(o.Txn, fund.KeyTotal, &total); err != nil {
			return err
		}
		if total.Sign() < 0 {
			return fmt.Errorf("%w: pooled total %v is negative", fund.ErrInvalidAmount, total)
		}
		var final []fund.Allocation
		if err := fund.Load(o.Txn, fund.KeyFinalAssociations, &final); err != nil {
			return err
		}
		if len(final) == 0 {
			return nil
		}
		o.With("deadline", o.Now())
		if err := fund.Save(o.Txn, fund.KeyDeadline, o.Now()); err != nil {
			return err
		}
		return fund.Save(o.Txn, fund.KeyClaimed, false)
	})
}

// Duplicate lets sender match every allocation: each beneficiary's current
// allocation is transferred from sender into custody and then doubled, and
// the pooled total doubles. Every call doubles again.
func (s *Service) Duplicate(ctx context.Context, sender auth.Principal) error {
	return s.run.Run(ctx, "duplicate", func(o *fund.Op) error {
		o.With("sender", sender)
		if err := o.Require(sender); err != nil {
			return err
		}
		var (
			final   []fund.Allocation
			total   fund.Amount
			assetID auth.Principal
		)
		if err := fund.Load(o.Txn, fund.KeyFinalAssociations, &final); err != nil {
			return err
		}
		if err := fund.Load(o.Txn, fund.KeyTotal, &total); err != nil {
			return err
		}
		if err := fund.Load(o.Txn, fund.KeyAsset, &assetID); err != nil {
			return err
		}

		two := big.NewInt(2)
		for i := range final {
			if err := o.Transfer(assetID, sender, o.Custody(), final[i].Amount); err != nil {
				return err
			}
			final[i].Amount = big.Mul(final[i].Amount, two)
		}
		if err := fund.Save(o.Txn, fund.KeyFinalAssociations, final); err != nil {
			return err
		}
		return fund.Save(o.Txn, fund.KeyTotal, big.Mul(total, two))
	})
}
