// Package quadratic implements the quadratic-funding allocation with integer
// arithmetic only.
//
// For beneficiary i with contributions c_i1..c_in:
//
//	sqrt_sum_i   = Σ floor(sqrt(c_ij))
//	weight_i     = sqrt_sum_i²
//	total_weight = Σ weight_i
//	allocation_i = floor(weight_i / total_weight) * pool
//
// The division happens before the multiplication. With several beneficiaries
// weight_i < total_weight, so the quotient truncates to zero and so does the
// allocation. TruncateThenScale keeps that order and is the default.
package quadratic

import (
	"fmt"
	stdbig "math/big"

	"github.com/filecoin-project/go-state-types/big"
)

// Policy selects where the integer division happens.
type Policy int

const (
	// TruncateThenScale computes floor(weight/total_weight) * pool.
	TruncateThenScale Policy = iota

	// ScaleThenTruncate computes floor(weight*pool/total_weight).
	// It yields larger allocations than the default on small pools.
	ScaleThenTruncate
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case TruncateThenScale:
		return "truncate-then-scale"
	case ScaleThenTruncate:
		return "scale-then-truncate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration name to a Policy. The empty string selects
// TruncateThenScale.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "truncate-then-scale":
		return TruncateThenScale, nil
	case "scale-then-truncate":
		return ScaleThenTruncate, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// ISqrt returns floor(sqrt(c)). Negative inputs count as zero.
func ISqrt(c int64) big.Int {
	if c <= 0 {
		return big.Zero()
	}
	return big.Int{Int: new(stdbig.Int).Sqrt(stdbig.NewInt(c))}
}

// Pow returns base^exp by repeated squaring.
func Pow(base big.Int, exp uint) big.Int {
	result := big.NewInt(1)
	cur := base
	for exp > 0 {
		if exp&1 == 1 {
			result = big.Mul(result, cur)
		}
		exp >>= 1
		if exp > 0 {
			cur = big.Mul(cur, cur)
		}
	}
	return result
}

// SqrtSum returns Σ floor(sqrt(c)) over contributions.
func SqrtSum(contributions []int64) big.Int {
	sum := big.Zero()
	for _, c := range contributions {
		sum = big.Add(sum, ISqrt(c))
	}
	return sum
}

// Weight returns the funding weight SqrtSum(contributions)².
func Weight(contributions []int64) big.Int {
	return Pow(SqrtSum(contributions), 2)
}

// TotalWeight returns the sum of the weights of every beneficiary.
func TotalWeight(contributions [][]int64) big.Int {
	total := big.Zero()
	for _, c := range contributions {
		total = big.Add(total, Weight(c))
	}
	return total
}

// Allocate splits pool across beneficiaries in proportion to their weights.
// contributions[i] holds the raw contributions of beneficiary i; the result
// has the same length and order.
func Allocate(contributions [][]int64, pool big.Int, policy Policy) ([]big.Int, error) {
	if pool.Nil() || pool.Sign() < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativePool, pool)
	}
	if policy != TruncateThenScale && policy != ScaleThenTruncate {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(policy))
	}

	weights := make([]big.Int, len(contributions))
	total := big.Zero()
	for i, c := range contributions {
		weights[i] = Weight(c)
		total = big.Add(total, weights[i])
	}
	if total.IsZero() {
		return nil, ErrZeroTotalWeight
	}

	allocs := make([]big.Int, len(weights))
	for i, w := range weights {
		switch policy {
		case TruncateThenScale:
			allocs[i] = big.Mul(big.Div(w, total), pool)
		case ScaleThenTruncate:
			allocs[i] = big.Div(big.Mul(w, pool), total)
		}
	}
	return allocs, nil
}

// Remainder returns pool - Σ allocations: the amount lost to truncation.
func Remainder(allocations []big.Int, pool big.Int) big.Int {
	rem := pool
	for _, a := range allocations {
		rem = big.Sub(rem, a)
	}
	return rem
}
