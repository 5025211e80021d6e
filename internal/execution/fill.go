package execution

import (
	"time"

	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/candidate"
	"github.com/kosheo/backtestcore/internal/indicator"
)

// simulateOne resolves a single candidate into a Trade, or reports ok=false
// with a reason (expired limit/stop, session exclusion, min-stop skip, ...)
// when the candidate never fills.
func simulateOne(bars bar.Series, atr, avgRange indicator.Series, c candidate.Candidate, cfg Config) (Trade, string, bool) {
	entryIdx, ok := resolveEntryIndex(bars, c, cfg)
	if !ok {
		return Trade{}, "entry_expired", false
	}

	eb := bars[entryIdx]
	if !atr[entryIdx].Valid {
		return Trade{}, "atr_unavailable", false
	}
	entryATR := atr[entryIdx].V

	if cfg.SessionFilter != SessionAll && cfg.SessionFilter != "" {
		if !inSession(eb.T, cfg.SessionFilter, cfg.SessionTimezone) {
			return Trade{}, "session_excluded", false
		}
	}

	mult := cfg.SessionMultipliers[sessionOf(eb.T, cfg.SessionTimezone)]
	spike := eb.H-eb.L >= cfg.NewsSpike.ATRMult*entryATR

	spread := cost(cfg.Spread, eb.C, entryATR)
	spread *= nonZero(mult.Spread)
	if spike && cfg.NewsSpike.SpreadMult > 0 {
		spread *= cfg.NewsSpike.SpreadMult
	}
	if cfg.MaxSpreadValue > 0 && spread > cfg.MaxSpreadValue {
		spread = cfg.MaxSpreadValue
	}

	slippage := cost(cfg.Slippage, eb.C, entryATR)
	slippage *= nonZero(mult.Slippage)
	slippage *= volatilityMultiplier(eb, avgRange, entryIdx, cfg.VolatilitySlippage)
	if spike && cfg.NewsSpike.SlippageMult > 0 {
		slippage *= cfg.NewsSpike.SlippageMult
	}

	commission := cost(cfg.Commission, eb.C, entryATR)
	commission *= nonZero(mult.Commission)

	entryPrice := c.EntryPrice
	side := c.Side
	entryPrice += side.Sign() * (spread/2 + slippage)

	stop := c.StopLoss
	minDist := max(cfg.MinStop.Value, cfg.MinStop.ATRMult*entryATR)
	risk := (entryPrice - stop) * side.Sign()
	if minDist > 0 && risk < minDist {
		switch cfg.MinStop.Mode {
		case MinStopSkip:
			return Trade{}, "min_stop_skip", false
		default: // adjust
			stop = entryPrice - side.Sign()*minDist
			risk = minDist
		}
	}
	if risk <= 0 {
		return Trade{}, "non_positive_risk", false
	}

	fillRatio := 1.0
	if cfg.PartialFill.Mode == PartialFillRange {
		threshold := cfg.PartialFill.ATRMult * entryATR
		rng := eb.H - eb.L
		if threshold > 0 && rng < threshold {
			observed := rng / threshold
			fillRatio = max(cfg.PartialFill.MinRatio, observed)
			if fillRatio > 1 {
				fillRatio = 1
			}
		}
	}

	feesR := (spread/2 + slippage + commission) / risk

	t := Trade{
		Candidate: c,
		EntryTime: eb.T,
		FillRatio: fillRatio,
		FeesR:     feesR,
	}
	t.EntryIndex = entryIdx
	t.EntryPrice = entryPrice
	t.StopLoss = stop

	exitIdx, exitPrice, reason, resolved := scanExit(bars, entryIdx, side, entryPrice, stop, c.TakeProfit, cfg)
	if !resolved {
		t.Outcome = bar.OutcomeOpen
		t.ExitReason = "open"
		return t, "", true
	}

	exitTime := bars[exitIdx].T
	rMultiple := (exitPrice-entryPrice)*side.Sign()/risk - feesR
	rMultiple *= fillRatio

	t.ExitIndex = &exitIdx
	t.ExitTime = &exitTime
	t.ExitPrice = &exitPrice
	t.ExitReason = reason
	t.RMultiple = &rMultiple
	if reason == "tp" {
		t.Outcome = bar.OutcomeWin
	} else if reason == "timeout" {
		t.Outcome = bar.OutcomeExpired
	} else {
		t.Outcome = bar.OutcomeLoss
	}
	return t, "", true
}

// resolveEntryIndex finds the bar a candidate actually fills on, per
// entryTiming/orderType/entryDelayBars/maxEntryWaitBars.
func resolveEntryIndex(bars bar.Series, c candidate.Candidate, cfg Config) (int, bool) {
	start := c.SignalIndex
	if cfg.EntryTiming == NextOpen {
		start++
	}
	start += cfg.EntryDelayBars
	if start >= len(bars) {
		return 0, false
	}

	if cfg.OrderType == Market {
		return start, true
	}

	limit := start + cfg.MaxEntryWaitBars
	for i := start; i < len(bars) && i <= limit; i++ {
		b := bars[i]
		switch cfg.OrderType {
		case Limit:
			if c.Side == bar.Buy && b.L <= c.EntryPrice {
				return i, true
			}
			if c.Side == bar.Sell && b.H >= c.EntryPrice {
				return i, true
			}
		case Stop:
			if c.Side == bar.Buy && b.H >= c.EntryPrice {
				return i, true
			}
			if c.Side == bar.Sell && b.L <= c.EntryPrice {
				return i, true
			}
		}
	}
	return 0, false
}

// scanExit walks forward from entryIdx checking stop/take-profit per
// ExitMode, applying the tie-breaker on a same-bar conflict and honoring
// AllowSameBarExit.
func scanExit(bars bar.Series, entryIdx int, side bar.Side, entry, stop, tp float64, cfg Config) (int, float64, string, bool) {
	for i := entryIdx; i < len(bars); i++ {
		if i == entryIdx && !cfg.AllowSameBarExit {
			continue
		}
		b := bars[i]

		if cfg.ExitMode == ExitClose {
			hitSL := (side == bar.Buy && b.C <= stop) || (side == bar.Sell && b.C >= stop)
			hitTP := (side == bar.Buy && b.C >= tp) || (side == bar.Sell && b.C <= tp)
			if hitSL {
				return i, stop, "sl", true
			}
			if hitTP {
				return i, tp, "tp", true
			}
			continue
		}

		hitSL := (side == bar.Buy && b.L <= stop) || (side == bar.Sell && b.H >= stop)
		hitTP := (side == bar.Buy && b.H >= tp) || (side == bar.Sell && b.L <= tp)
		switch {
		case hitSL && hitTP:
			if cfg.TieBreaker == TieTP {
				return i, tp, "tp", true
			}
			return i, stop, "sl", true
		case hitSL:
			return i, stop, "sl", true
		case hitTP:
			return i, tp, "tp", true
		}
	}
	return 0, 0, "", false
}

func cost(cc CostConfig, price, atr float64) float64 {
	switch cc.Model {
	case CostFixed:
		return cc.Value
	case CostATR:
		return cc.ATRMult * atr
	case CostPercent:
		return cc.Percent * price
	default:
		return 0
	}
}

func volatilityMultiplier(b bar.Bar, avgRange indicator.Series, i int, cfg VolatilitySlippageConfig) float64 {
	if cfg.Lookback <= 0 || !avgRange[i].Valid || avgRange[i].V == 0 {
		return 1
	}
	ratio := (b.H - b.L) / avgRange[i].V
	switch {
	case ratio < cfg.LowThreshold:
		return nonZero(cfg.LowMult)
	case ratio > cfg.HighThreshold:
		return nonZero(cfg.HighMult)
	default:
		return nonZero(cfg.MidMult)
	}
}

func sessionOf(t int64, tz SessionTimezone) SessionFilter {
	ts := time.UnixMilli(t).UTC()
	if tz == TZLocal {
		ts = time.UnixMilli(t).Local()
	}
	h := ts.Hour()
	switch {
	case h >= 0 && h < 8:
		return SessionAsia
	case h >= 8 && h < 13:
		return SessionLondon
	default:
		return SessionNY
	}
}

func inSession(t int64, want SessionFilter, tz SessionTimezone) bool {
	return sessionOf(t, tz) == want
}

// nonZero treats an unset (zero) multiplier as a 1x no-op, since the spec's
// session/news multipliers default to "not configured" rather than "mute".
func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
