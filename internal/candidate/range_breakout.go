package candidate

import (
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/indicator"
)

// RangeBreakoutConfig parameterizes the range_breakout family (spec 4.3).
type RangeBreakoutConfig struct {
	LookbackBars  int
	ATRPeriod     int
	ATRMult       float64
	RR            float64
	BreakoutMode  BreakoutMode
	BufferAtrMult float64
	CooldownBars  int
}

func generateRangeBreakout(bars bar.Series, cfg RangeBreakoutConfig) ([]Candidate, error) {
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
		var entry float64
		switch cfg.BreakoutMode {
		case BreakoutWick:
			switch {
			case b.H >= breakoutHigh:
				side, entry = bar.Buy, b.C
			case b.L <= breakoutLow:
				side, entry = bar.Sell, b.C
			default:
				continue
			}
		default: // BreakoutClose
			switch {
			case b.C >= breakoutHigh:
				side, entry = bar.Buy, b.C
			case b.C <= breakoutLow:
				side, entry = bar.Sell, b.C
			default:
				continue
			}
		}

		var stop float64
		if side == bar.Buy {
			stop = lo[i].V - buffer
		} else {
			stop = hi[i].V + buffer
		}
		risk := (entry - stop) * side.Sign()
		if risk <= 0 {
			continue
		}
		target := entry + side.Sign()*cfg.RR*risk

		c := Candidate{
			ID:          newID(bar.SetupRangeBreakout, side, i, i),
			Setup:       bar.SetupRangeBreakout,
			Side:        side,
			SignalIndex: i,
			EntryIndex:  i,
			EntryPrice:  entry,
			StopLoss:    stop,
			TakeProfit:  target,
		}
		setMeta(&c, "range_high", hi[i].V)
		setMeta(&c, "range_low", lo[i].V)
		out = append(out, c)

		cooldownUntil = i + cfg.CooldownBars
	}
	return out, nil
}
