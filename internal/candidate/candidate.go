// Package candidate implements the five independent strategy families that
// emit candidate trades, plus the sum-type dispatch described in spec
// Design Note 9 ("Generators as polymorphism"). No simulation or filtering
// happens here — a generator only proposes signal/entry/stop/target.
//
// Grounded on the teacher's internal/patterns/detector.go (the
// "scan a window, test a shape predicate, append a struct with confidence
// metadata" loop every generator below reuses) and
// internal/analysis/fvg.go (the 3-bar fair-value-gap detector that
// fvg_retrace.go generalizes).
package candidate

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/kosheo/backtestcore/internal/bar"
)

// Candidate is a proposed trade: entry/stop/target but no fill yet.
type Candidate struct {
	ID          string
	Setup       bar.SetupID
	Side        bar.Side
	SignalIndex int
	EntryIndex  int // provisional; the execution simulator resolves the real entry bar
	EntryPrice  float64
	StopLoss    float64
	TakeProfit  float64
	Meta        map[string]any
}

// newID derives a stable candidate ID from the setup family and the bar
// positions that produced it, rather than a random UUID v4: spec §8
// invariant 1 requires identical inputs to produce bit-identical outputs,
// and Trade embeds Candidate, so a random ID here would leak into every
// emitted trade.
func newID(setup bar.SetupID, side bar.Side, signalIndex, entryIndex int) string {
	data := fmt.Sprintf("%s|%s|%d|%d", setup, side, signalIndex, entryIndex)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(data)).String()
}

func setMeta(c *Candidate, key string, value any) {
	if c.Meta == nil {
		c.Meta = make(map[string]any)
	}
	c.Meta[key] = value
}

// Config is the sum type of per-family strategy configurations. Exactly one
// field is non-nil; Generate dispatches on whichever is set. This avoids a
// shared interface that would hide each family's own parameter set.
type Config struct {
	RangeBreakout *RangeBreakoutConfig
	BreakRetest   *BreakRetestConfig
	FVGRetrace    *FVGRetraceConfig
	TrendPullback *TrendPullbackConfig
	MeanReversion *MeanReversionConfig
}

// SetupID reports which family this Config selects.
func (c Config) SetupID() bar.SetupID {
	switch {
	case c.RangeBreakout != nil:
		return bar.SetupRangeBreakout
	case c.BreakRetest != nil:
		return bar.SetupBreakRetest
	case c.FVGRetrace != nil:
		return bar.SetupFVGRetrace
	case c.TrendPullback != nil:
		return bar.SetupTrendPullback
	case c.MeanReversion != nil:
		return bar.SetupMeanReversion
	default:
		return ""
	}
}

// Generate dispatches to the configured family's generator. Candidates are
// returned sorted by SignalIndex, as every per-family implementation below
// already produces them in scan order.
func Generate(bars bar.Series, cfg Config) ([]Candidate, error) {
	switch {
	case cfg.RangeBreakout != nil:
		return generateRangeBreakout(bars, *cfg.RangeBreakout)
	case cfg.BreakRetest != nil:
		return generateBreakRetest(bars, *cfg.BreakRetest)
	case cfg.FVGRetrace != nil:
		return generateFVGRetrace(bars, *cfg.FVGRetrace)
	case cfg.TrendPullback != nil:
		return generateTrendPullback(bars, *cfg.TrendPullback)
	case cfg.MeanReversion != nil:
		return generateMeanReversion(bars, *cfg.MeanReversion)
	default:
		return nil, nil
	}
}

// TouchMode selects whether a confirmation needs only a wick touch or a
// closing price beyond a level.
type TouchMode string

const (
	Touch TouchMode = "touch"
	Close TouchMode = "close"
)

// BreakoutMode selects whether a breakout is judged by close or by wick.
type BreakoutMode string

const (
	BreakoutClose BreakoutMode = "close"
	BreakoutWick  BreakoutMode = "wick"
)

// EntryMode selects where inside a fair-value gap the retrace entry sits.
type EntryMode string

const (
	EntryMid  EntryMode = "mid"
	EntryEdge EntryMode = "edge"
)
