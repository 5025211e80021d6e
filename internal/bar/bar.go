// Package bar defines the core OHLCV record the rest of the engine is built
// on, plus the small enumerations that travel alongside it.
package bar

import "strconv"

// Bar is one OHLC(V) observation at a discrete timestamp, in epoch
// milliseconds. Volume is optional — zero means "not reported", not "zero
// volume traded".
type Bar struct {
	T int64
	O float64
	H float64
	L float64
	C float64
	V float64
}

// Side is the direction of a candidate or trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Sign returns +1 for Buy, -1 for Sell.
func (s Side) Sign() float64 {
	if s == Sell {
		return -1
	}
	return 1
}

// Outcome is the resolved state of a trade.
type Outcome string

const (
	OutcomeOpen    Outcome = "open"
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeExpired Outcome = "expired"
)

// SetupID names the strategy family that produced a candidate.
type SetupID string

const (
	SetupRangeBreakout SetupID = "range_breakout"
	SetupBreakRetest   SetupID = "break_retest"
	SetupFVGRetrace    SetupID = "fvg_retrace"
	SetupTrendPullback SetupID = "trend_pullback"
	SetupMeanReversion SetupID = "mean_reversion"
)

// Series is an ordered, read-only bar sequence. Every component in this
// module borrows a Series and never mutates it.
type Series []Bar

// Validate reports whether the series is strictly increasing in T and has
// sane OHLC ordering (low <= open,close <= high). An empty series is valid;
// callers that require a minimum length check it themselves.
func (s Series) Validate() error {
	for i, b := range s {
		if b.H < b.L {
			return &validationError{index: i, reason: "high below low"}
		}
		if b.O < b.L || b.O > b.H || b.C < b.L || b.C > b.H {
			return &validationError{index: i, reason: "open/close outside high/low range"}
		}
		if i > 0 && b.T <= s[i-1].T {
			return &validationError{index: i, reason: "timestamp not strictly increasing"}
		}
	}
	return nil
}

type validationError struct {
	index  int
	reason string
}

func (e *validationError) Error() string {
	return "bar " + strconv.Itoa(e.index) + ": " + e.reason
}
