// Package indicator computes pure numeric primitives over a bar series:
// ATR, EMA, SMA, RSI, and rolling extremes. Every function here is a
// deterministic, side-effect-free pass over the whole series, computed once
// per run rather than recomputed per-index by callers (spec Design Note:
// "aggregate indicator arrays SHOULD be computed once per run to avoid
// O(n*strategies) passes" — generalized from the teacher's
// internal/strategy/indicators.go, which recomputed SMA/EMA/RSI/ATR from
// scratch on every call over a trailing slice).
package indicator

import (
	"math"

	"github.com/kosheo/backtestcore/internal/bar"
)

// Value is one indicator slot: either defined or not. Valid=false replaces
// NaN so callers never have to NaN-check float math by hand.
type Value struct {
	V     float64
	Valid bool
}

// Series is a per-bar-index aligned indicator output, one Value per input
// bar.
type Series []Value

func undefined(n int) Series {
	return make(Series, n)
}

// SMA computes the simple moving average over `period` bars, undefined
// until the window fills.
func SMA(bars bar.Series, period int) Series {
	out := undefined(len(bars))
	if period <= 0 {
		return out
	}
	sum := 0.0
	for i, b := range bars {
		sum += b.C
		if i >= period {
			sum -= bars[i-period].C
		}
		if i >= period-1 {
			out[i] = Value{V: sum / float64(period), Valid: true}
		}
	}
	return out
}

// EMA computes the exponential moving average over `period` bars. The
// seed is the SMA of the first `period` closes, matching the teacher's
// CalculateEMA seeding convention; undefined until the window fills.
func EMA(bars bar.Series, period int) Series {
	out := undefined(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}
	mult := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += bars[i].C
	}
	seed /= float64(period)
	out[period-1] = Value{V: seed, Valid: true}

	prev := seed
	for i := period; i < len(bars); i++ {
		ema := bars[i].C*mult + prev*(1-mult)
		out[i] = Value{V: ema, Valid: true}
		prev = ema
	}
	return out
}

// ATR computes Wilder's Average True Range over `period` bars. Undefined
// for the first `period` bars (the first true-range needs a previous
// close, and Wilder smoothing needs `period` true ranges to seed).
func ATR(bars bar.Series, period int) Series {
	out := undefined(len(bars))
	if period <= 0 || len(bars) <= period {
		return out
	}

	tr := func(i int) float64 {
		h, l := bars[i].H, bars[i].L
		if i == 0 {
			return h - l
		}
		prevClose := bars[i-1].C
		return math.Max(h-l, math.Max(math.Abs(h-prevClose), math.Abs(l-prevClose)))
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr(i)
	}
	atr := sum / float64(period)
	out[period] = Value{V: atr, Valid: true}

	for i := period + 1; i < len(bars); i++ {
		atr = (atr*float64(period-1) + tr(i)) / float64(period)
		out[i] = Value{V: atr, Valid: true}
	}
	return out
}

// RSI computes Wilder's Relative Strength Index over `period` bars.
// Undefined for the first `period` bars.
func RSI(bars bar.Series, period int) Series {
	out := undefined(len(bars))
	if period <= 0 || len(bars) <= period {
		return out
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		change := bars[i].C - bars[i-1].C
		if change > 0 {
			gainSum += change
		} else {
			lossSum += -change
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = Value{V: rsiFromAverages(avgGain, avgLoss), Valid: true}

	for i := period + 1; i < len(bars); i++ {
		change := bars[i].C - bars[i-1].C
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = Value{V: rsiFromAverages(avgGain, avgLoss), Valid: true}
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// RollingMax returns, for each bar index, the maximum high over the prior
// `window` bars, strictly excluding the current bar. Undefined until
// `window` prior bars exist.
func RollingMax(bars bar.Series, window int) Series {
	return rollingExtreme(bars, window, true)
}

// RollingMin returns, for each bar index, the minimum low over the prior
// `window` bars, strictly excluding the current bar. Undefined until
// `window` prior bars exist.
func RollingMin(bars bar.Series, window int) Series {
	return rollingExtreme(bars, window, false)
}

func rollingExtreme(bars bar.Series, window int, max bool) Series {
	out := undefined(len(bars))
	if window <= 0 {
		return out
	}
	for i := range bars {
		if i < window {
			continue
		}
		best := valueAt(bars, i-window, max)
		for j := i - window + 1; j < i; j++ {
			v := valueAt(bars, j, max)
			if (max && v > best) || (!max && v < best) {
				best = v
			}
		}
		out[i] = Value{V: best, Valid: true}
	}
	return out
}

func valueAt(bars bar.Series, i int, max bool) float64 {
	if max {
		return bars[i].H
	}
	return bars[i].L
}
