package vesting

import (
	"context"
	"errors"
	"testing"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/matchfund-go/asset"
	"github.com/bitfsorg/matchfund-go/auth"
	"github.com/bitfsorg/matchfund-go/fund"
	"github.com/bitfsorg/matchfund-go/ledger"
)

const (
	admin   auth.Principal = "admin"
	token   auth.Principal = "token"
	custody auth.Principal = "custody"
	alice   auth.Principal = "alice"
	bob     auth.Principal = "bob"
	carol   auth.Principal = "carol"

	start    uint64 = 1000
	deadline uint64 = 2000
)

type fixture struct {
	svc   *Service
	bank  *asset.MemBank
	store *ledger.MemStore
	clock *fund.ManualClock
}

func newFixture(t *testing.T, beneficiaries ...auth.Principal) *fixture {
	t.Helper()
	f := &fixture{
		bank:  asset.NewMemBank(),
		store: ledger.NewMemStore(),
		clock: fund.NewManualClock(start),
	}
	var err error
	f.svc, err = New(fund.Env{
		Store:   f.store,
		Bank:    f.bank,
		Auth:    auth.TrustedHost{},
		Clock:   f.clock,
		Custody: custody,
	})
	require.NoError(t, err)
	if len(beneficiaries) > 0 {
		require.NoError(t, f.svc.Init(as(admin), InitParams{
			Admin: admin, Asset: token, Beneficiaries: beneficiaries, Deadline: deadline,
		}))
	}
	return f
}

func as(p auth.Principal) context.Context {
	return auth.WithCaller(context.Background(), p)
}

// fundCustody credits the custody account and the matching allocation.
func (f *fixture) fundCustody(t *testing.T, b auth.Principal, amount int64) {
	t.Helper()
	require.NoError(t, f.svc.Deposit(context.Background(), b, amount))
	require.NoError(t, f.bank.Mint(token, custody, big.NewInt(amount)))
}

func (f *fixture) balance(p auth.Principal) big.Int { return f.bank.Balance(token, p) }

func (f *fixture) snapshot(t *testing.T) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, k := range f.store.Keys() {
		v, err := f.store.Get(k)
		require.NoError(t, err)
		out[k] = string(v)
	}
	return out
}

// nextCycle moves past the withdraw deadline and opens the next cycle.
func (f *fixture) nextCycle(t *testing.T) {
	t.Helper()
	f.clock.Advance(MonthSeconds)
	require.NoError(t, f.svc.ResetDeadline(as(admin), admin))
}

// ---------------------------------------------------------------------------
// Init, AddAssociation, Deposit
// ---------------------------------------------------------------------------

func TestInit(t *testing.T) {
	f := newFixture(t, alice, bob)

	allocs, err := f.svc.Allocations()
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	for _, a := range allocs {
		assert.True(t, a.Amount.IsZero())
		assert.False(t, a.HasWithdrawn)
	}

	wd, err := f.svc.WithdrawDeadline()
	require.NoError(t, err)
	assert.Equal(t, deadline, wd)
	d, err := f.svc.Deadline()
	require.NoError(t, err)
	assert.Equal(t, deadline, d)
	month, err := f.svc.ClaimMonth()
	require.NoError(t, err)
	assert.Zero(t, month)
	claimed, err := f.svc.Claimed()
	require.NoError(t, err)
	assert.False(t, claimed)
	got, err := f.svc.Admin()
	require.NoError(t, err)
	assert.Equal(t, admin, got)
}

func TestInit_Rejections(t *testing.T) {
	f := newFixture(t)
	params := InitParams{Admin: admin, Asset: token, Beneficiaries: []auth.Principal{alice}, Deadline: deadline}

	assert.ErrorIs(t, f.svc.Init(as(bob), params), fund.ErrInvalidAuth)
	past := params
	past.Deadline = start - 1
	assert.ErrorIs(t, f.svc.Init(as(admin), past), fund.ErrInvalidTimestamp)
	none := params
	none.Beneficiaries = []auth.Principal{}
	assert.ErrorIs(t, f.svc.Init(as(admin), none), fund.ErrInvalidAssociation)
	assert.Empty(t, f.store.Keys())

	require.NoError(t, f.svc.Init(as(admin), params))
	before := f.snapshot(t)
	assert.ErrorIs(t, f.svc.Init(as(admin), params), fund.ErrAlreadyInitialized)
	assert.Equal(t, before, f.snapshot(t))
}

func TestAddAssociation(t *testing.T) {
	f := newFixture(t, alice)
	require.NoError(t, f.svc.AddAssociation(as(admin), admin, bob))
	assert.ErrorIs(t, f.svc.AddAssociation(as(bob), bob, carol), fund.ErrInvalidAuth)

	f.clock.Set(deadline)
	assert.ErrorIs(t, f.svc.AddAssociation(as(admin), admin, carol), fund.ErrInvalidAssociation)

	allocs, err := f.svc.Allocations()
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, bob, allocs[1].Name)
}

func TestDeposit(t *testing.T) {
	f := newFixture(t, alice, bob)
	require.NoError(t, f.svc.Deposit(context.Background(), alice, 100))
	require.NoError(t, f.svc.Deposit(context.Background(), alice, 20))
	require.NoError(t, f.svc.Deposit(context.Background(), bob, 5))

	allocs, err := f.svc.Allocations()
	require.NoError(t, err)
	assert.True(t, allocs[0].Amount.Equals(big.NewInt(120)))
	assert.True(t, allocs[1].Amount.Equals(big.NewInt(5)))

	total, err := f.svc.Total()
	require.NoError(t, err)
	assert.True(t, total.Equals(big.NewInt(125)))
	assert.Empty(t, f.bank.Journal(), "deposits move no funds")
}

func TestDeposit_Rejections(t *testing.T) {
	f := newFixture(t, alice)
	require.NoError(t, f.svc.Deposit(context.Background(), alice, 1))
	before := f.snapshot(t)

	assert.ErrorIs(t, f.svc.Deposit(context.Background(), alice, 0), fund.ErrInvalidAmount)
	assert.ErrorIs(t, f.svc.Deposit(context.Background(), alice, -1), fund.ErrInvalidAmount)
	assert.ErrorIs(t, f.svc.Deposit(context.Background(), carol, 1), fund.ErrInvalidAssociation)
	f.clock.Set(deadline)
	assert.ErrorIs(t, f.svc.Deposit(context.Background(), alice, 1), fund.ErrInvalidTimestamp)

	assert.Equal(t, before, f.snapshot(t))
}

// ---------------------------------------------------------------------------
// Withdraw, ResetDeadline
// ---------------------------------------------------------------------------

func TestWithdraw_PaysOneTwelfth(t *testing.T) {
	f := newFixture(t, alice, bob)
	f.fundCustody(t, alice, 120)
	f.fundCustody(t, bob, 25)

	require.NoError(t, f.svc.Withdraw(as(admin), admin))
	assert.True(t, f.balance(alice).Equals(big.NewInt(10)))
	assert.True(t, f.balance(bob).Equals(big.NewInt(2)))
	assert.True(t, f.balance(custody).Equals(big.NewInt(145-12)))

	allocs, err := f.svc.Allocations()
	require.NoError(t, err)
	assert.True(t, allocs[0].HasWithdrawn)
	assert.True(t, allocs[0].Amount.Equals(big.NewInt(120)), "allocations are not reduced")
	month, err := f.svc.ClaimMonth()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), month)

	assert.ErrorIs(t, f.svc.Withdraw(as(admin), admin), fund.ErrAlreadyWithdrawn)
	assert.True(t, f.balance(alice).Equals(big.NewInt(10)))
	assert.ErrorIs(t, f.svc.Withdraw(as(bob), bob), fund.ErrInvalidAuth)
}

func TestWithdraw_TwelvePeriodsThenNothing(t *testing.T) {
	f := newFixture(t, alice)
	f.fundCustody(t, alice, 120)
	f.clock.Set(deadline)

	for i := 0; i < int(MaxPeriods); i++ {
		require.NoError(t, f.svc.Withdraw(as(admin), admin), "period %d", i+1)
		f.nextCycle(t)
	}
	assert.True(t, f.balance(alice).Equals(big.NewInt(120)))
	assert.True(t, f.balance(custody).IsZero())

	// Further cycles pay nothing and change nothing.
	for i := 0; i < 3; i++ {
		before := f.snapshot(t)
		require.NoError(t, f.svc.Withdraw(as(admin), admin))
		assert.Equal(t, before, f.snapshot(t))
		f.nextCycle(t)
	}
	assert.True(t, f.balance(alice).Equals(big.NewInt(120)))
	month, err := f.svc.ClaimMonth()
	require.NoError(t, err)
	assert.Equal(t, MaxPeriods, month)
}

func TestWithdraw_InsufficientCustodyRollsBack(t *testing.T) {
	f := newFixture(t, alice, bob)
	f.fundCustody(t, alice, 120)
	// bob's allocation is credited but custody is not funded for it.
	require.NoError(t, f.svc.Deposit(context.Background(), bob, 12000))
	before := f.snapshot(t)

	assert.ErrorIs(t, f.svc.Withdraw(as(admin), admin), asset.ErrInsufficientFunds)
	assert.Equal(t, before, f.snapshot(t))
	assert.True(t, f.balance(alice).IsZero())
	assert.True(t, f.balance(custody).Equals(big.NewInt(120)))
}

func TestResetDeadline(t *testing.T) {
	f := newFixture(t, alice)
	f.fundCustody(t, alice, 120)
	require.NoError(t, f.svc.Withdraw(as(admin), admin))

	// Claimed and the withdraw deadline is still ahead.
	err := f.svc.ResetDeadline(as(admin), admin)
	assert.ErrorIs(t, err, fund.ErrInvalidTimestamp)
	assert.ErrorIs(t, f.svc.ResetDeadline(as(bob), bob), fund.ErrInvalidAuth)

	f.clock.Set(deadline)
	require.NoError(t, f.svc.ResetDeadline(as(admin), admin))
	wd, err := f.svc.WithdrawDeadline()
	require.NoError(t, err)
	assert.Equal(t, deadline+MonthSeconds, wd)
	claimed, err := f.svc.Claimed()
	require.NoError(t, err)
	assert.False(t, claimed)
	allocs, err := f.svc.Allocations()
	require.NoError(t, err)
	assert.False(t, allocs[0].HasWithdrawn)
	month, err := f.svc.ClaimMonth()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), month, "claim month is never rolled back")

	// Unclaimed cycles can be reset at any time.
	require.NoError(t, f.svc.ResetDeadline(as(admin), admin))
	wd, err = f.svc.WithdrawDeadline()
	require.NoError(t, err)
	assert.Equal(t, deadline+2*MonthSeconds, wd)
}

// ---------------------------------------------------------------------------
// Releaser
// ---------------------------------------------------------------------------

func TestReleaser_RunOnce(t *testing.T) {
	f := newFixture(t, alice)
	f.fundCustody(t, alice, 120)
	creds := func(ctx context.Context) (context.Context, error) { return auth.WithCaller(ctx, admin), nil }
	r := NewReleaser(f.svc, admin, creds, "", nil)

	require.NoError(t, r.RunOnce(context.Background()))
	assert.True(t, f.balance(alice).Equals(big.NewInt(10)))

	// Same cycle, deadline not reached: reset is refused.
	assert.ErrorIs(t, r.RunOnce(context.Background()), fund.ErrInvalidTimestamp)
	assert.True(t, f.balance(alice).Equals(big.NewInt(10)))

	f.clock.Set(deadline)
	require.NoError(t, r.RunOnce(context.Background()))
	assert.True(t, f.balance(alice).Equals(big.NewInt(20)))
}

func TestReleaser_CredentialError(t *testing.T) {
	f := newFixture(t, alice)
	boom := errors.New("no key")
	r := NewReleaser(f.svc, admin, func(context.Context) (context.Context, error) { return nil, boom }, "", nil)
	assert.ErrorIs(t, r.RunOnce(context.Background()), boom)
}

func TestReleaser_StartStop(t *testing.T) {
	f := newFixture(t, alice)
	r := NewReleaser(f.svc, admin, nil, "@every 1h", nil)
	require.NoError(t, r.Start())
	require.NoError(t, r.Start(), "second start is a no-op")
	<-r.Stop().Done()
	<-r.Stop().Done()

	bad := NewReleaser(f.svc, admin, nil, "not a schedule", nil)
	assert.Error(t, bad.Start())
}
