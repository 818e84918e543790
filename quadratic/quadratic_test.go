package quadratic

import (
	stdbig "math/big"
	"testing"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amounts(vals ...int64) []big.Int {
	out := make([]big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func assertAmounts(t *testing.T, want []big.Int, got []big.Int) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equals(got[i]), "index %d: want %v, got %v", i, want[i], got[i])
	}
}

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

func TestISqrt(t *testing.T) {
	tests := []struct {
		in   int64
		want int64
	}{
		{-4, 0},
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 1},
		{4, 2},
		{8, 2},
		{9, 3},
		{99, 9},
		{100, 10},
		{1<<62 - 1, 2147483647},
		{9223372036854775807, 3037000499},
	}
	for _, tc := range tests {
		got := ISqrt(tc.in)
		assert.True(t, got.Equals(big.NewInt(tc.want)), "ISqrt(%d) = %v, want %d", tc.in, got, tc.want)
	}
}

func TestPow(t *testing.T) {
	assert.True(t, Pow(big.NewInt(7), 0).Equals(big.NewInt(1)))
	assert.True(t, Pow(big.NewInt(7), 1).Equals(big.NewInt(7)))
	assert.True(t, Pow(big.NewInt(5), 2).Equals(big.NewInt(25)))
	assert.True(t, Pow(big.NewInt(2), 10).Equals(big.NewInt(1024)))
	assert.True(t, Pow(big.NewInt(3), 5).Equals(big.NewInt(243)))
}

func TestPow_WiderThan64Bits(t *testing.T) {
	// (2^62)^2 = 2^124 overflows int64 but fits the 128-bit range the
	// allocation arithmetic needs.
	got := Pow(big.NewInt(1<<62), 2)
	want := big.Int{Int: new(stdbig.Int).Lsh(stdbig.NewInt(1), 124)}
	assert.True(t, got.Equals(want))
}

func TestWeight(t *testing.T) {
	assert.True(t, SqrtSum([]int64{4, 9}).Equals(big.NewInt(5)))
	assert.True(t, Weight([]int64{4, 9}).Equals(big.NewInt(25)))
	assert.True(t, Weight([]int64{1}).Equals(big.NewInt(1)))
	assert.True(t, Weight(nil).IsZero())
	assert.True(t, TotalWeight([][]int64{{4, 9}, {1}}).Equals(big.NewInt(26)))
}

// ---------------------------------------------------------------------------
// Allocate
// ---------------------------------------------------------------------------

func TestAllocate_TruncatesBeforeScaling(t *testing.T) {
	// sqrt_sum_A = 2+3 = 5, weight_A = 25; weight_B = 1; total_weight = 26.
	// floor(25/26)*260 = 0 and floor(1/26)*260 = 0: the whole pool is lost
	// to truncation.
	allocs, err := Allocate([][]int64{{4, 9}, {1}}, big.NewInt(260), TruncateThenScale)
	require.NoError(t, err)
	assertAmounts(t, amounts(0, 0), allocs)
	assert.True(t, Remainder(allocs, big.NewInt(260)).Equals(big.NewInt(260)))
}

func TestAllocate_ScaleThenTruncate(t *testing.T) {
	allocs, err := Allocate([][]int64{{4, 9}, {1}}, big.NewInt(260), ScaleThenTruncate)
	require.NoError(t, err)
	assertAmounts(t, amounts(250, 10), allocs)
}

func TestAllocate_SingleBeneficiaryTakesPool(t *testing.T) {
	// Equality with the pool only happens when one beneficiary holds all weight.
	allocs, err := Allocate([][]int64{{100, 1, 2}, {}}, big.NewInt(500), TruncateThenScale)
	require.NoError(t, err)
	assertAmounts(t, amounts(500, 0), allocs)
	assert.True(t, Remainder(allocs, big.NewInt(500)).IsZero())
}

func TestAllocate_SumNeverExceedsPool(t *testing.T) {
	cases := [][][]int64{
		{{4, 9}, {1}},
		{{1, 1, 1, 1}, {16}},
		{{100}, {100}, {100}},
		{{25}},
		{{2, 3}, {5, 7, 11}, {1000000}},
		{{1}, {}, {}},
	}
	pool := big.NewInt(1_000_003)
	for _, policy := range []Policy{TruncateThenScale, ScaleThenTruncate} {
		for i, contribs := range cases {
			allocs, err := Allocate(contribs, pool, policy)
			require.NoError(t, err)
			rem := Remainder(allocs, pool)
			assert.True(t, rem.GreaterThanEqual(big.Zero()),
				"%s case %d: allocations exceed pool by %v", policy, i, big.Sub(big.Zero(), rem))
		}
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	contribs := [][]int64{{4, 9, 16}, {1, 1}, {36}}
	first, err := Allocate(contribs, big.NewInt(9000), ScaleThenTruncate)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Allocate(contribs, big.NewInt(9000), ScaleThenTruncate)
		require.NoError(t, err)
		assertAmounts(t, first, again)
	}
}

func TestAllocate_ZeroTotalWeight(t *testing.T) {
	_, err := Allocate([][]int64{{}, {0}}, big.NewInt(10), TruncateThenScale)
	assert.ErrorIs(t, err, ErrZeroTotalWeight)

	_, err = Allocate(nil, big.NewInt(10), TruncateThenScale)
	assert.ErrorIs(t, err, ErrZeroTotalWeight)
}

func TestAllocate_InvalidInputs(t *testing.T) {
	_, err := Allocate([][]int64{{1}}, big.NewInt(-1), TruncateThenScale)
	assert.ErrorIs(t, err, ErrNegativePool)

	_, err = Allocate([][]int64{{1}}, big.NewInt(1), Policy(7))
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, TruncateThenScale, p)

	p, err = ParsePolicy("scale-then-truncate")
	require.NoError(t, err)
	assert.Equal(t, ScaleThenTruncate, p)
	assert.Equal(t, "scale-then-truncate", p.String())

	_, err = ParsePolicy("round-half-even")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

// ---------------------------------------------------------------------------
// Golden scenarios
// ---------------------------------------------------------------------------

type scenarioResult struct {
	Name        string   `json:"name"`
	Policy      string   `json:"policy"`
	Pool        string   `json:"pool"`
	Weights     []string `json:"weights"`
	TotalWeight string   `json:"total_weight"`
	Allocations []string `json:"allocations"`
	Remainder   string   `json:"remainder"`
}

func TestAllocate_Golden(t *testing.T) {
	scenarios := []struct {
		name     string
		contribs [][]int64
		pool     int64
		policy   Policy
	}{
		{"two-beneficiaries", [][]int64{{4, 9}, {1}}, 260, TruncateThenScale},
		{"two-beneficiaries", [][]int64{{4, 9}, {1}}, 260, ScaleThenTruncate},
		{"single-weighted", [][]int64{{100, 1, 2}, {0}}, 500, TruncateThenScale},
		{"equal-weights", [][]int64{{4}, {4}}, 100, TruncateThenScale},
	}

	var results []scenarioResult
	for _, sc := range scenarios {
		allocs, err := Allocate(sc.contribs, big.NewInt(sc.pool), sc.policy)
		require.NoError(t, err)

		res := scenarioResult{
			Name:        sc.name,
			Policy:      sc.policy.String(),
			Pool:        big.NewInt(sc.pool).String(),
			TotalWeight: TotalWeight(sc.contribs).String(),
			Remainder:   Remainder(allocs, big.NewInt(sc.pool)).String(),
		}
		for i, c := range sc.contribs {
			res.Weights = append(res.Weights, Weight(c).String())
			res.Allocations = append(res.Allocations, allocs[i].String())
		}
		results = append(results, res)
	}

	g := goldie.New(t)
	g.AssertJson(t, "allocation_scenarios", results)
}
