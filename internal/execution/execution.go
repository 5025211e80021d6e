// Package execution turns a candidate into an executed trade under a
// realism model: entry timing and order type, spread/slippage/commission
// cost models, session filters, volatility-scaled slippage, partial fills,
// news-spike amplification, minimum-stop policy, and same-bar tie-breaking.
//
// Grounded on the teacher's internal/backtest/backtest.go Run loop (the
// "walk forward, track one open position, check exits before entries"
// shape) and internal/backtest/engine.go, generalized to the candidate/cost
// model the spec adds.
package execution

import (
	"github.com/rs/zerolog/log"

	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/bterr"
	"github.com/kosheo/backtestcore/internal/candidate"
	"github.com/kosheo/backtestcore/internal/indicator"
)

// EntryTiming selects when the provisional entry bar resolves.
type EntryTiming string

const (
	NextOpen    EntryTiming = "next_open"
	SignalClose EntryTiming = "signal_close"
)

// OrderType selects how the entry bar is found.
type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
	Stop   OrderType = "stop"
)

// ExitMode selects whether stop/TP are checked against the bar's wick range
// or only its close.
type ExitMode string

const (
	ExitTouch ExitMode = "touch"
	ExitClose ExitMode = "close"
)

// TieBreaker selects the winner when a single bar reaches both stop and
// take-profit under ExitTouch.
type TieBreaker string

const (
	TieSL TieBreaker = "sl"
	TieTP TieBreaker = "tp"
)

// SessionFilter restricts entries to a trading session bucket.
type SessionFilter string

const (
	SessionAll    SessionFilter = "all"
	SessionAsia   SessionFilter = "asia"
	SessionLondon SessionFilter = "london"
	SessionNY     SessionFilter = "ny"
)

// SessionTimezone selects which clock the session bucket is read from.
type SessionTimezone string

const (
	TZUTC   SessionTimezone = "utc"
	TZLocal SessionTimezone = "local"
)

// CostModel selects how a cost component (spread, slippage, commission) is
// computed.
type CostModel string

const (
	CostNone    CostModel = "none"
	CostFixed   CostModel = "fixed"
	CostATR     CostModel = "atr"
	CostPercent CostModel = "percent"
)

// PartialFillMode selects whether low-range bars fill a candidate partially.
type PartialFillMode string

const (
	PartialFillNone  PartialFillMode = "none"
	PartialFillRange PartialFillMode = "range"
)

// MinStopPolicy selects what happens when risk is below the minimum stop
// distance.
type MinStopPolicy string

const (
	MinStopAdjust MinStopPolicy = "adjust"
	MinStopSkip   MinStopPolicy = "skip"
)

// CostConfig parameterizes one of spread/slippage/commission.
type CostConfig struct {
	Model   CostModel
	Value   float64 // fixed: absolute price units
	ATRMult float64 // atr: multiplier on ATR
	Percent float64 // percent: fraction of price, e.g. 0.001 = 0.1%
}

// SessionMultiplier scales a cost component within one session bucket.
type SessionMultiplier struct {
	Spread     float64
	Slippage   float64
	Commission float64
}

// MinStopConfig is the minimum allowed |entry-stop| policy.
type MinStopConfig struct {
	Value   float64
	ATRMult float64
	Mode    MinStopPolicy
}

// VolatilitySlippageConfig scales slippage by a recent-range regime.
type VolatilitySlippageConfig struct {
	Lookback      int
	LowThreshold  float64
	HighThreshold float64
	LowMult       float64
	MidMult       float64
	HighMult      float64
}

// PartialFillConfig governs fillRatio assignment on thin-range bars.
type PartialFillConfig struct {
	Mode     PartialFillMode
	ATRMult  float64
	MinRatio float64
}

// NewsSpikeConfig amplifies costs on abnormally wide bars.
type NewsSpikeConfig struct {
	ATRMult      float64
	SlippageMult float64
	SpreadMult   float64
}

// Config is the full ExecutionConfig record (spec 3).
type Config struct {
	EntryTiming      EntryTiming
	OrderType        OrderType
	EntryDelayBars   int
	MaxEntryWaitBars int
	ExitMode         ExitMode
	AllowSameBarExit bool
	TieBreaker       TieBreaker

	Spread         CostConfig
	Slippage       CostConfig
	Commission     CostConfig
	MaxSpreadValue float64 // 0 means unbounded

	SessionFilter      SessionFilter
	SessionTimezone    SessionTimezone
	SessionMultipliers map[SessionFilter]SessionMultiplier

	MinStop MinStopConfig

	VolatilitySlippage VolatilitySlippageConfig
	PartialFill        PartialFillConfig
	NewsSpike          NewsSpikeConfig

	ATRPeriod int // indicator ATR period driving every *AtrMult cost above
}

// Validate rejects configurations the spec names as structurally
// impossible, per the ConfigConflict Open Question decision: signal_close
// entry timing cannot be paired with an order type that requires scanning
// forward for a trigger, because there is no bar after the signal bar to
// scan on the signal bar itself.
func (c Config) Validate() error {
	if c.EntryTiming == SignalClose && c.OrderType != Market {
		return bterr.New(bterr.ConfigConflict,
			"entryTiming=signal_close requires orderType=market",
			"entryTiming", c.EntryTiming, "orderType", c.OrderType)
	}
	if c.ExitMode != ExitTouch && c.ExitMode != ExitClose {
		return bterr.New(bterr.InvalidInput, "unknown exit mode", "exitMode", c.ExitMode)
	}
	return nil
}

// Trade is a candidate.Candidate that has been run through the simulator.
type Trade struct {
	candidate.Candidate
	EntryTime  int64
	ExitIndex  *int
	ExitTime   *int64
	ExitPrice  *float64
	ExitReason string // "tp", "sl", "timeout", "open"
	RMultiple  *float64
	FeesR      float64
	FillRatio  float64
	Outcome    bar.Outcome
}

// Run resolves every candidate into a Trade in signal order. A candidate
// that never fills (entry expiry, session exclusion, min-stop skip, ...) is
// dropped and appears nowhere in the returned trades; the drop is local and
// the run continues, with the reason logged alongside the candidate's own
// identifying fields rather than carried on a Trade that was never created.
// The ATR driving cost models is computed once per Run from cfg.ATRPeriod
// and shared by every candidate, whichever family produced it.
func Run(bars bar.Series, candidates []candidate.Candidate, cfg Config) ([]Trade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	atr := indicator.ATR(bars, cfg.ATRPeriod)
	avgRange := averageRange(bars, cfg.VolatilitySlippage.Lookback)

	trades := make([]Trade, 0, len(candidates))
	for _, c := range candidates {
		t, reason, ok := simulateOne(bars, atr, avgRange, c, cfg)
		if !ok {
			log.Debug().Str("candidateId", c.ID).Str("setup", string(c.Setup)).
				Str("side", string(c.Side)).Int("signalIndex", c.SignalIndex).
				Str("reason", reason).Msg("candidate dropped")
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func averageRange(bars bar.Series, lookback int) indicator.Series {
	out := make(indicator.Series, len(bars))
	if lookback <= 0 {
		return out
	}
	sum := 0.0
	for i, b := range bars {
		rng := b.H - b.L
		sum += rng
		if i >= lookback {
			sum -= bars[i-lookback].H - bars[i-lookback].L
		}
		if i >= lookback-1 {
			out[i] = indicator.Value{V: sum / float64(lookback), Valid: true}
		}
	}
	return out
}
