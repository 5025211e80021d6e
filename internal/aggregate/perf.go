package aggregate

import (
	"sort"

	"github.com/kosheo/backtestcore/internal/execution"
)

// computePerformance walks closed trades (already sorted by entryIndex) and
// derives the equity curve, drawdown, streaks, and hold durations.
// equityBase is an optional starting equity used only to express drawdown
// as a percentage; pass 0 to leave MaxDrawdownPct undefined.
func computePerformance(closed []execution.Trade, equityBase float64) Performance {
	p := Performance{Curve: make([]EquityPoint, 0, len(closed))}
	if len(closed) == 0 {
		return p
	}

	var cum float64
	peak := 0.0
	maxDD := 0.0
	rs := make([]float64, 0, len(closed))

	var winStreak, lossStreak int
	var holdBarsSum, holdMsSum int64
	var holdCount int

	for _, t := range closed {
		r := *t.RMultiple
		rs = append(rs, r)
		cum += r
		p.Curve = append(p.Curve, EquityPoint{Index: t.EntryIndex, Equity: cum})

		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}

		if r > 0 {
			winStreak++
			lossStreak = 0
		} else {
			lossStreak++
			winStreak = 0
		}
		if winStreak > p.MaxWinStreak {
			p.MaxWinStreak = winStreak
		}
		if lossStreak > p.MaxLossStreak {
			p.MaxLossStreak = lossStreak
		}

		if t.ExitIndex != nil {
			holdBarsSum += int64(*t.ExitIndex - t.EntryIndex)
			if t.ExitTime != nil {
				holdMsSum += *t.ExitTime - t.EntryTime
			}
			holdCount++
		}
	}

	p.NetR = cum
	p.MaxDrawdown = maxDD
	if equityBase > 0 {
		pct := maxDD / equityBase * 100
		p.MaxDrawdownPct = &pct
	}

	avgR := cum / float64(len(rs))
	p.AvgR = &avgR
	median := medianOf(rs)
	p.MedianR = &median

	if holdCount > 0 {
		avgBars := float64(holdBarsSum) / float64(holdCount)
		p.AvgHoldBars = &avgBars
		avgMs := float64(holdMsSum) / float64(holdCount)
		p.AvgHoldMs = &avgMs
	}

	return p
}

func medianOf(rs []float64) float64 {
	sorted := make([]float64, len(rs))
	copy(sorted, rs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
