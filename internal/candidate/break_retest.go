package candidate

import (
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/indicator"
)

// BreakRetestConfig parameterizes the break_retest family (spec 4.3): a
// range_breakout structure break, followed by a retest of the broken level
// within RetestBars that confirms per RetestMode.
type BreakRetestConfig struct {
	LookbackBars        int
	ATRPeriod           int
	RR                  float64
	BreakoutMode        BreakoutMode
	BufferAtrMult       float64
	RetestBars          int
	RetestBufferAtrMult float64
	RetestMode          TouchMode
	CooldownBars        int
}

func generateBreakRetest(bars bar.Series, cfg BreakRetestConfig) ([]Candidate, error) {
	hi := indicator.RollingMax(bars, cfg.LookbackBars)
	lo := indicator.RollingMin(bars, cfg.LookbackBars)
	atr := indicator.ATR(bars, cfg.ATRPeriod)

	var out []Candidate
	cooldownUntil := -1

	for i, b := range bars {
		if !hi[i].Valid || !lo[i].Valid || !atr[i].Valid {
			continue
		}
		if i <= cooldownUntil {
			continue
		}

		buffer := cfg.BufferAtrMult * atr[i].V
		breakoutHigh := hi[i].V + buffer
		breakoutLow := lo[i].V - buffer

		var side bar.Side
		var level float64
		switch cfg.BreakoutMode {
		case BreakoutWick:
			switch {
			case b.H >= breakoutHigh:
				side, level = bar.Buy, breakoutHigh
			case b.L <= breakoutLow:
				side, level = bar.Sell, breakoutLow
			default:
				continue
			}
		default: // BreakoutClose
			switch {
			case b.C >= breakoutHigh:
				side, level = bar.Buy, breakoutHigh
			case b.C <= breakoutLow:
				side, level = bar.Sell, breakoutLow
			default:
				continue
			}
		}

		retestIdx, ok := findRetest(bars, atr, i, side, level, cfg)
		if !ok {
			continue
		}
		rb := bars[retestIdx]
		retestBuffer := cfg.RetestBufferAtrMult * atr[retestIdx].V

		entry := rb.C
		var stop float64
		if side == bar.Buy {
			stop = level - retestBuffer
		} else {
			stop = level + retestBuffer
		}
		risk := (entry - stop) * side.Sign()
		if risk <= 0 {
			continue
		}
		target := entry + side.Sign()*cfg.RR*risk

		c := Candidate{
			ID:          newID(bar.SetupBreakRetest, side, retestIdx, retestIdx),
			Setup:       bar.SetupBreakRetest,
			Side:        side,
			SignalIndex: retestIdx,
			EntryIndex:  retestIdx,
			EntryPrice:  entry,
			StopLoss:    stop,
			TakeProfit:  target,
		}
		setMeta(&c, "break_index", i)
		setMeta(&c, "broken_level", level)
		out = append(out, c)

		cooldownUntil = retestIdx + cfg.CooldownBars
	}
	return out, nil
}

// findRetest scans forward from a break at breakIndex for a bar that comes
// back within RetestBufferAtrMult*ATR of the broken level, confirming per
// RetestMode (touch = wick reaches the level, close = closing price does).
func findRetest(bars bar.Series, atr indicator.Series, breakIndex int, side bar.Side, level float64, cfg BreakRetestConfig) (int, bool) {
	limit := breakIndex + cfg.RetestBars
	for j := breakIndex + 1; j < len(bars) && j <= limit; j++ {
		if !atr[j].Valid {
			continue
		}
		buffer := cfg.RetestBufferAtrMult * atr[j].V
		b := bars[j]
		switch cfg.RetestMode {
		case Close:
			if side == bar.Buy && b.C <= level+buffer {
				return j, true
			}
			if side == bar.Sell && b.C >= level-buffer {
				return j, true
			}
		default: // Touch
			if side == bar.Buy && b.L <= level+buffer {
				return j, true
			}
			if side == bar.Sell && b.H >= level-buffer {
				return j, true
			}
		}
	}
	return 0, false
}
