// Package aggregate computes trade statistics, equity curve, drawdown, and
// streaks from closed trades (spec 4.6). Grounded on the teacher's
// internal/backtest/backtest.go calculateMetrics/calculateMaxDrawdown
// (peak-trough walk) and internal/backtest/engine.go's BacktestResult
// field set, generalized from dollar P&L to R-multiples.
package aggregate

import (
	"math"
	"sort"

	"github.com/kosheo/backtestcore/internal/execution"
)

// Stats summarizes closed-trade outcomes. Fields the spec marks optional
// are nil when their denominator is zero.
type Stats struct {
	Total        int
	Closed       int
	Wins         int
	Losses       int
	WinRate      *float64
	Expectancy   *float64
	AvgWin       *float64
	AvgLoss      *float64
	ProfitFactor *float64
	GrossWinR    float64
	GrossLossR   float64
}

// EquityPoint is one point on the cumulative-R equity curve.
type EquityPoint struct {
	Index  int
	Equity float64
}

// Performance summarizes the equity path derived from closed trades.
type Performance struct {
	NetR           float64
	MaxDrawdown    float64
	MaxDrawdownPct *float64
	AvgR           *float64
	MedianR        *float64
	AvgHoldMs      *float64
	AvgHoldBars    *float64
	MaxWinStreak   int
	MaxLossStreak  int
	Curve          []EquityPoint
}

// Compute derives Stats and Performance from a trade set in any
// permutation: it sorts by entryIndex internally before any streak or
// drawdown computation, per spec 4.6.
func Compute(trades []execution.Trade, equityBase float64) (Stats, Performance) {
	sorted := make([]execution.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EntryIndex < sorted[j].EntryIndex
	})

	closed := make([]execution.Trade, 0, len(sorted))
	for _, t := range sorted {
		if t.RMultiple != nil {
			closed = append(closed, t)
		}
	}

	stats := computeStats(sorted, closed)
	perf := computePerformance(closed, equityBase)
	return stats, perf
}

func computeStats(all, closed []execution.Trade) Stats {
	s := Stats{Total: len(all), Closed: len(closed)}

	var rSum float64
	for _, t := range closed {
		r := *t.RMultiple
		rSum += r
		if r > 0 {
			s.Wins++
			s.GrossWinR += r
		} else {
			s.Losses++
			s.GrossLossR += r
		}
	}

	if s.Closed > 0 {
		winRate := float64(s.Wins) / float64(s.Closed)
		s.WinRate = &winRate
		expectancy := rSum / float64(s.Closed)
		s.Expectancy = &expectancy
	}
	if s.Wins > 0 {
		avgWin := s.GrossWinR / float64(s.Wins)
		s.AvgWin = &avgWin
	}
	if s.Losses > 0 {
		avgLoss := s.GrossLossR / float64(s.Losses)
		s.AvgLoss = &avgLoss
	}
	switch {
	case s.GrossLossR != 0:
		pf := s.GrossWinR / -s.GrossLossR
		s.ProfitFactor = &pf
	case s.GrossWinR > 0:
		pf := math.Inf(1)
		s.ProfitFactor = &pf
	}
	return s
}
