package candidate

import (
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/indicator"
)

// TrendPullbackConfig parameterizes the trend_pullback family (spec 4.3):
// an EMA-fast/EMA-slow trend filter, entered on a pullback into the fast EMA
// that confirms back in the trend direction. The trend classifier mirrors
// bias.Compute's ModeEMA; the pullback/confirm loop generalizes the
// teacher's internal/analysis/trend.go swing-based reversal checks.
type TrendPullbackConfig struct {
	EMAFast         int
	EMASlow         int
	ATRPeriod       int
	MinTrendBars    int
	PullbackAtrMult float64
	ConfirmMode     TouchMode
	RR              float64
	CooldownBars    int
}

func generateTrendPullback(bars bar.Series, cfg TrendPullbackConfig) ([]Candidate, error) {
	fast := indicator.EMA(bars, cfg.EMAFast)
	slow := indicator.EMA(bars, cfg.EMASlow)
	atr := indicator.ATR(bars, cfg.ATRPeriod)

	var out []Candidate
	cooldownUntil := -1

	for i, b := range bars {
		if !fast[i].Valid || !slow[i].Valid || !atr[i].Valid {
			continue
		}
		if i <= cooldownUntil {
			continue
		}

		var side bar.Side
		switch {
		case fast[i].V > slow[i].V:
			side = bar.Buy
		case fast[i].V < slow[i].V:
			side = bar.Sell
		default:
			continue
		}
		if !trendHeld(fast, slow, i, side, cfg.MinTrendBars) {
			continue
		}

		ema := fast[i].V
		band := cfg.PullbackAtrMult * atr[i].V

		var touched bool
		switch cfg.ConfirmMode {
		case Close:
			touched = b.C >= ema-band && b.C <= ema+band
		default: // Touch
			if side == bar.Buy {
				touched = b.L <= ema+band && b.L >= ema-band
			} else {
				touched = b.H >= ema-band && b.H <= ema+band
			}
		}
		if !touched {
			continue
		}

		if side == bar.Buy && b.C <= b.O {
			continue
		}
		if side == bar.Sell && b.C >= b.O {
			continue
		}

		entry := b.C
		var stop float64
		if side == bar.Buy {
			stop = b.L - band
		} else {
			stop = b.H + band
		}
		risk := (entry - stop) * side.Sign()
		if risk <= 0 {
			continue
		}
		target := entry + side.Sign()*cfg.RR*risk

		c := Candidate{
			ID:          newID(bar.SetupTrendPullback, side, i, i),
			Setup:       bar.SetupTrendPullback,
			Side:        side,
			SignalIndex: i,
			EntryIndex:  i,
			EntryPrice:  entry,
			StopLoss:    stop,
			TakeProfit:  target,
		}
		setMeta(&c, "ema_fast", fast[i].V)
		setMeta(&c, "ema_slow", slow[i].V)
		out = append(out, c)

		cooldownUntil = i + cfg.CooldownBars
	}
	return out, nil
}

// trendHeld reports whether the fast/slow EMA ordering implied by side has
// held for at least minBars consecutive bars ending at i.
func trendHeld(fast, slow indicator.Series, i int, side bar.Side, minBars int) bool {
	if minBars <= 0 {
		return true
	}
	start := i - minBars + 1
	if start < 0 {
		return false
	}
	for j := start; j <= i; j++ {
		if !fast[j].Valid || !slow[j].Valid {
			return false
		}
		if side == bar.Buy && fast[j].V <= slow[j].V {
			return false
		}
		if side == bar.Sell && fast[j].V >= slow[j].V {
			return false
		}
	}
	return true
}
