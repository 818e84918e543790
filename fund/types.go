// Package fund holds what the collection and vesting services share: the
// error taxonomy, record types, ledger keys, the clock and the operation
// runner that serializes operations and commits them all-or-nothing.
package fund

import (
	"github.com/filecoin-project/go-state-types/big"

	"github.com/bitfsorg/matchfund-go/auth"
)

// Amount is a signed integer wide enough for the square of any pool size.
type Amount = big.Int

// Ledger keys. Each service stores its records under its own prefix.
const (
	KeyAdmin             = "admin"
	KeyAsset             = "asset"
	KeyDeadline          = "deadline"
	KeyTotal             = "total"
	KeyClaimed           = "claimed"
	KeyAssociations      = "associations"
	KeyFinalAssociations = "final_associations"
	KeyDisbursement      = "disbursement"
	KeyClaimMonth        = "claim_month"
	KeyWithdrawDeadline  = "deadline_withdraw"
)

// Beneficiary is a beneficiary before calculation: its identity and every raw
// contribution in deposit order.
type Beneficiary struct {
	Name          auth.Principal `json:"name"`
	Contributions []int64        `json:"contributions"`
}

// Allocation is a beneficiary after calculation.
type Allocation struct {
	Name         auth.Principal `json:"name"`
	Amount       Amount         `json:"amount"`
	HasWithdrawn bool           `json:"has_withdrawn"`
}

// State is the deposit window state of a collection.
type State uint32

const (
	// StateRunning means deposits are accepted (now < deadline).
	StateRunning State = 0
	// StateEnded means the deadline has passed (now >= deadline).
	StateEnded State = 1
)

// String returns "running" or "ended".
func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "ended"
}

// StateAt returns the window state at now for deadline.
func StateAt(now, deadline uint64) State {
	if now < deadline {
		return StateRunning
	}
	return StateEnded
}

// NewBeneficiaries builds empty pre-calculation records in the given order.
// Repeated names produce independent records.
func NewBeneficiaries(names []auth.Principal) []Beneficiary {
	out := make([]Beneficiary, 0, len(names))
	for _, n := range names {
		out = append(out, Beneficiary{Name: n, Contributions: []int64{}})
	}
	return out
}

// NewAllocations builds zero allocations in the given order.
func NewAllocations(names []auth.Principal) []Allocation {
	out := make([]Allocation, 0, len(names))
	for _, n := range names {
		out = append(out, Allocation{Name: n, Amount: big.Zero()})
	}
	return out
}

// Principal returns the beneficiary identity.
func (b Beneficiary) Principal() auth.Principal { return b.Name }

// Principal returns the beneficiary identity.
func (a Allocation) Principal() auth.Principal { return a.Name }

// IndexOf returns the index of the first record named name, or -1.
func IndexOf[T interface{ Principal() auth.Principal }](records []T, name auth.Principal) int {
	for i, r := range records {
		if r.Principal() == name {
			return i
		}
	}
	return -1
}
