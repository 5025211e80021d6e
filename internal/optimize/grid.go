// Package optimize enumerates a bounded grid of parameter combinations
// (spec 4.8), evaluates each through the candidate/confluence/execution/
// aggregate pipeline, ranks the results, and reports progress through an
// OptimizerSession. Grounded on the teacher's internal/backtest optimizer
// shape (a bounded-concurrency evaluation fan-out re-sorted before
// truncation) and generalized to the spec's deterministic lexicographic
// grid order.
package optimize

import (
	"sort"
)

// Grid is a field name -> allowed values map. Combinations are enumerated
// in lexicographic order over Fields, a fixed ordering independent of map
// iteration order.
type Grid struct {
	Fields []string
	Values map[string][]any
}

// Combination is one point in the grid: field name -> chosen value.
type Combination map[string]any

// Enumerate produces every combination in deterministic lexicographic
// order (spec 9: "first N combinations" must be deterministic when
// truncated), stopping once maxCombos have been emitted. len(combos) is the
// number actually emitted; truncated reports whether the full Cartesian
// product was larger.
func Enumerate(g Grid, maxCombos int) (combos []Combination, truncated bool) {
	total := 1
	for _, f := range g.Fields {
		total *= len(g.Values[f])
	}
	if maxCombos <= 0 || maxCombos > total {
		maxCombos = total
	}

	indices := make([]int, len(g.Fields))
	for len(combos) < maxCombos {
		c := make(Combination, len(g.Fields))
		for i, f := range g.Fields {
			c[f] = g.Values[f][indices[i]]
		}
		combos = append(combos, c)

		if !advance(indices, g) {
			break
		}
	}
	return combos, len(combos) < total
}

// advance increments the rightmost-first odometer over g.Fields, reporting
// whether there is a next combination.
func advance(indices []int, g Grid) bool {
	for i := len(g.Fields) - 1; i >= 0; i-- {
		indices[i]++
		if indices[i] < len(g.Values[g.Fields[i]]) {
			return true
		}
		indices[i] = 0
	}
	return false
}

// RankKey selects the OptimizerResult field results are sorted by.
type RankKey string

const (
	RankNetR         RankKey = "netR"
	RankExpectancy   RankKey = "expectancy"
	RankProfitFactor RankKey = "profitFactor"
	RankWinRate      RankKey = "winRate"
	RankMaxDrawdown  RankKey = "maxDrawdown" // minimized
)

// Rank sorts results by key (descending, except maxDrawdown which is
// ascending since lower drawdown is better) and truncates to topN.
func Rank(results []Result, key RankKey, topN int) []Result {
	sorted := make([]Result, len(results))
	copy(sorted, results)

	less := func(i, j int) bool {
		a, b := metric(sorted[i], key), metric(sorted[j], key)
		if a == b {
			return sorted[i].Index < sorted[j].Index
		}
		if key == RankMaxDrawdown {
			return a < b
		}
		return a > b
	}
	sort.SliceStable(sorted, less)

	if topN > 0 && topN < len(sorted) {
		sorted = sorted[:topN]
	}
	return sorted
}

func metric(r Result, key RankKey) float64 {
	switch key {
	case RankExpectancy:
		return orZero(r.Expectancy)
	case RankProfitFactor:
		return orZero(r.ProfitFactor)
	case RankWinRate:
		return orZero(r.WinRate)
	case RankMaxDrawdown:
		return r.MaxDrawdown
	default:
		return r.NetR
	}
}

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
