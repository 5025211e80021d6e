package candidate

import (
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/indicator"
)

// MeanReversionConfig parameterizes the mean_reversion family (spec 4.3):
// an RSI extreme combined with a close deviating from its SMA by more than
// BandAtrMult*ATR, targeting reversion back to the mean.
type MeanReversionConfig struct {
	SMAPeriod     int
	ATRPeriod     int
	BandAtrMult   float64
	RSIPeriod     int // 0 disables the RSI gate; band touch alone signals
	RSIOversold   float64
	RSIOverbought float64
	StopAtrMult   float64
	CooldownBars  int
}

func generateMeanReversion(bars bar.Series, cfg MeanReversionConfig) ([]Candidate, error) {
	sma := indicator.SMA(bars, cfg.SMAPeriod)
	atr := indicator.ATR(bars, cfg.ATRPeriod)
	useRSI := cfg.RSIPeriod > 0
	var rsi indicator.Series
	if useRSI {
		rsi = indicator.RSI(bars, cfg.RSIPeriod)
	}

	var out []Candidate
	cooldownUntil := -1

	for i, b := range bars {
		if !sma[i].Valid || !atr[i].Valid || (useRSI && !rsi[i].Valid) {
			continue
		}
		if i <= cooldownUntil {
			continue
		}

		deviation := b.C - sma[i].V
		threshold := cfg.BandAtrMult * atr[i].V
		oversold := !useRSI || rsi[i].V <= cfg.RSIOversold
		overbought := !useRSI || rsi[i].V >= cfg.RSIOverbought

		var side bar.Side
		switch {
		case deviation <= -threshold && oversold:
			side = bar.Buy
		case deviation >= threshold && overbought:
			side = bar.Sell
		default:
			continue
		}

		entry := b.C
		var stop float64
		if side == bar.Buy {
			stop = b.L - cfg.StopAtrMult*atr[i].V
		} else {
			stop = b.H + cfg.StopAtrMult*atr[i].V
		}
		risk := (entry - stop) * side.Sign()
		if risk <= 0 {
			continue
		}

		target := sma[i].V
		if (target-entry)*side.Sign() <= 0 {
			continue
		}

		c := Candidate{
			ID:          newID(bar.SetupMeanReversion, side, i, i),
			Setup:       bar.SetupMeanReversion,
			Side:        side,
			SignalIndex: i,
			EntryIndex:  i,
			EntryPrice:  entry,
			StopLoss:    stop,
			TakeProfit:  target,
		}
		setMeta(&c, "sma", sma[i].V)
		if useRSI {
			setMeta(&c, "rsi", rsi[i].V)
		}
		out = append(out, c)

		cooldownUntil = i + cfg.CooldownBars
	}
	return out, nil
}
