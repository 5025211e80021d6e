package aggregate

import (
	"math"
	"testing"

	"github.com/kosheo/backtestcore/internal/candidate"
	"github.com/kosheo/backtestcore/internal/execution"
)

func rptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func tptr(v int64) *int64     { return &v }

func closedTrade(entryIdx, exitIdx int, r float64) execution.Trade {
	return execution.Trade{
		Candidate: candidateAt(entryIdx),
		RMultiple: rptr(r),
		ExitIndex: iptr(exitIdx),
		EntryTime: int64(entryIdx) * 60000,
		ExitTime:  tptr(int64(exitIdx) * 60000),
	}
}

func candidateAt(entryIdx int) candidate.Candidate {
	return candidate.Candidate{EntryIndex: entryIdx}
}

func TestComputeStatsWinRateAndExpectancy(t *testing.T) {
	trades := []execution.Trade{
		closedTrade(0, 1, 1),
		closedTrade(1, 2, -1),
		closedTrade(2, 3, 2),
	}
	stats, _ := Compute(trades, 0)

	if stats.Closed != 3 || stats.Wins != 2 || stats.Losses != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.WinRate == nil || *stats.WinRate != 2.0/3.0 {
		t.Fatalf("WinRate = %v, want 2/3", stats.WinRate)
	}
	if stats.Expectancy == nil || *stats.Expectancy != 2.0/3.0 {
		t.Fatalf("Expectancy = %v, want 2/3 (net R of 2 over 3 trades)", stats.Expectancy)
	}
}

func TestComputeProfitFactorInfiniteWithNoLosses(t *testing.T) {
	trades := []execution.Trade{closedTrade(0, 1, 1), closedTrade(1, 2, 2)}
	stats, _ := Compute(trades, 0)

	if stats.ProfitFactor == nil || !math.IsInf(*stats.ProfitFactor, 1) {
		t.Fatalf("ProfitFactor = %v, want +Inf when there are no losses", stats.ProfitFactor)
	}
}

func TestComputeUndefinedStatsWhenNoClosedTrades(t *testing.T) {
	trades := []execution.Trade{{Candidate: candidateAt(0), RMultiple: nil}}
	stats, perf := Compute(trades, 0)

	if stats.WinRate != nil || stats.Expectancy != nil || stats.ProfitFactor != nil {
		t.Fatalf("expected nil stats with zero closed trades, got %+v", stats)
	}
	if len(perf.Curve) != 0 {
		t.Fatalf("expected an empty curve, got %d points", len(perf.Curve))
	}
}

func TestComputeIsPermutationInvariant(t *testing.T) {
	inOrder := []execution.Trade{
		closedTrade(0, 1, 1),
		closedTrade(1, 2, -2),
		closedTrade(2, 3, 3),
	}
	shuffled := []execution.Trade{inOrder[2], inOrder[0], inOrder[1]}

	statsA, perfA := Compute(inOrder, 0)
	statsB, perfB := Compute(shuffled, 0)

	if *statsA.Expectancy != *statsB.Expectancy {
		t.Fatalf("expectancy should not depend on input order: %v vs %v", *statsA.Expectancy, *statsB.Expectancy)
	}
	if perfA.MaxDrawdown != perfB.MaxDrawdown {
		t.Fatalf("drawdown should not depend on input order: %v vs %v", perfA.MaxDrawdown, perfB.MaxDrawdown)
	}
	if perfA.MaxWinStreak != perfB.MaxWinStreak || perfA.MaxLossStreak != perfB.MaxLossStreak {
		t.Fatalf("streaks should not depend on input order")
	}
}

func TestComputeMaxDrawdownWalksPeakToTrough(t *testing.T) {
	// cumulative R: 2, 3, 1, 4 -> peak 3, trough 1 -> drawdown 2
	trades := []execution.Trade{
		closedTrade(0, 1, 2),
		closedTrade(1, 2, 1),
		closedTrade(2, 3, -2),
		closedTrade(3, 4, 3),
	}
	_, perf := Compute(trades, 0)

	if perf.MaxDrawdown != 2 {
		t.Errorf("MaxDrawdown = %v, want 2", perf.MaxDrawdown)
	}
	if perf.NetR != 4 {
		t.Errorf("NetR = %v, want 4", perf.NetR)
	}
}

func TestComputeStreaksResetOnOppositeOutcome(t *testing.T) {
	trades := []execution.Trade{
		closedTrade(0, 1, 1),
		closedTrade(1, 2, 1),
		closedTrade(2, 3, -1),
		closedTrade(3, 4, -1),
		closedTrade(4, 5, -1),
		closedTrade(5, 6, 1),
	}
	_, perf := Compute(trades, 0)

	if perf.MaxWinStreak != 2 {
		t.Errorf("MaxWinStreak = %d, want 2", perf.MaxWinStreak)
	}
	if perf.MaxLossStreak != 3 {
		t.Errorf("MaxLossStreak = %d, want 3", perf.MaxLossStreak)
	}
}

func TestComputeMaxDrawdownPctOnlyWhenEquityBasePositive(t *testing.T) {
	trades := []execution.Trade{closedTrade(0, 1, -1)}

	_, withBase := Compute(trades, 100)
	if withBase.MaxDrawdownPct == nil {
		t.Fatal("expected MaxDrawdownPct when equityBase > 0")
	}

	_, withoutBase := Compute(trades, 0)
	if withoutBase.MaxDrawdownPct != nil {
		t.Fatal("expected nil MaxDrawdownPct when equityBase is 0")
	}
}

func TestMedianOfEvenAndOddCounts(t *testing.T) {
	if got := medianOf([]float64{1, 3, 2}); got != 2 {
		t.Errorf("median of odd count = %v, want 2", got)
	}
	if got := medianOf([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("median of even count = %v, want 2.5", got)
	}
}
