package candidate

import (
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/indicator"
)

// FVGRetraceConfig parameterizes the fvg_retrace family (spec 4.3):
// a 3-bar fair value gap, traded on the retrace back into the gap.
// Grounded on the teacher's internal/analysis/fvg.go 3-candle gap detector
// (c1.High < c3.Low / c1.Low > c3.High) and its FVG-fill tracking.
type FVGRetraceConfig struct {
	ATRPeriod     int
	MinGapAtrMult float64
	MaxWaitBars   int
	EntryMode     EntryMode
	RR            float64
	CooldownBars  int
}

func generateFVGRetrace(bars bar.Series, cfg FVGRetraceConfig) ([]Candidate, error) {
	atr := indicator.ATR(bars, cfg.ATRPeriod)

	var out []Candidate
	cooldownUntil := -1

	for i := 0; i+2 < len(bars); i++ {
		gapIndex := i + 2
		if !atr[gapIndex].Valid {
			continue
		}
		if gapIndex <= cooldownUntil {
			continue
		}
		c1, c3 := bars[i], bars[gapIndex]

		var side bar.Side
		var top, bottom float64
		switch {
		case c1.H < c3.L:
			side, top, bottom = bar.Buy, c3.L, c1.H
		case c1.L > c3.H:
			side, top, bottom = bar.Sell, c1.L, c3.H
		default:
			continue
		}

		minGap := cfg.MinGapAtrMult * atr[gapIndex].V
		if top-bottom < minGap {
			continue
		}

		entryIdx, filledBefore, ok := findGapRetrace(bars, gapIndex, side, top, bottom, cfg.MaxWaitBars)
		if !ok {
			continue
		}
		var entry, stop float64
		switch {
		case side == bar.Buy && cfg.EntryMode == EntryEdge:
			entry = top
		case side == bar.Buy:
			entry = (top + bottom) / 2
		case cfg.EntryMode == EntryEdge:
			entry = bottom
		default:
			entry = (top + bottom) / 2
		}
		if side == bar.Buy {
			stop = bottom
		} else {
			stop = top
		}

		risk := (entry - stop) * side.Sign()
		if risk <= 0 {
			continue
		}
		target := entry + side.Sign()*cfg.RR*risk

		c := Candidate{
			ID:          newID(bar.SetupFVGRetrace, side, entryIdx, entryIdx),
			Setup:       bar.SetupFVGRetrace,
			Side:        side,
			SignalIndex: entryIdx,
			EntryIndex:  entryIdx,
			EntryPrice:  entry,
			StopLoss:    stop,
			TakeProfit:  target,
		}
		setMeta(&c, "gap_top", top)
		setMeta(&c, "gap_bottom", bottom)
		setMeta(&c, "gap_index", gapIndex)
		setMeta(&c, "gap_filled_before_entry", filledBefore)
		out = append(out, c)

		cooldownUntil = entryIdx + cfg.CooldownBars
	}
	return out, nil
}

// findGapRetrace scans forward from a gap's creation index for the first bar
// whose wick re-enters the gap zone, within maxWait bars. It also reports
// whether an earlier bar fully pierced through the zone's far edge first
// (the gap having been filled before this retrace even reached it).
func findGapRetrace(bars bar.Series, gapIndex int, side bar.Side, top, bottom float64, maxWait int) (int, bool, bool) {
	filledBefore := false
	limit := gapIndex + maxWait
	for j := gapIndex + 1; j < len(bars) && j <= limit; j++ {
		b := bars[j]
		if side == bar.Buy {
			if b.L <= top && b.L >= bottom {
				return j, filledBefore, true
			}
			if b.L < bottom {
				filledBefore = true
			}
		} else {
			if b.H >= bottom && b.H <= top {
				return j, filledBefore, true
			}
			if b.H > top {
				filledBefore = true
			}
		}
	}
	return 0, filledBefore, false
}
