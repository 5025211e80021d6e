// Package validation splits trades into train/test windows (spec 4.7): a
// single holdout split and a rolling walk-forward schedule, each producing
// per-window stats plus, for walk-forward, a stability score and drift
// flags. Grounded on the teacher's rolling-period loop in
// other_examples' walkforward.go ("advance a start cursor by stepDays
// until the window runs past the data") generalized from calendar dates to
// bar-index ranges.
package validation

import (
	"math"

	"github.com/kosheo/backtestcore/internal/aggregate"
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/bterr"
	"github.com/kosheo/backtestcore/internal/execution"
)

const dayMs = int64(86400000)

// Range is an inclusive bar-index window.
type Range struct {
	StartIndex int
	EndIndex   int
}

// Window bundles a range with the stats/equity derived from the trades
// whose entryIndex falls inside it.
type Window struct {
	Range Range
	Stats aggregate.Stats
	Perf  aggregate.Performance
}

// HoldoutMode selects how the single train/test split point is chosen.
type HoldoutMode string

const (
	HoldoutPercent  HoldoutMode = "percent"
	HoldoutLastDays HoldoutMode = "last_days"
)

// HoldoutConfig parameterizes Holdout.
type HoldoutConfig struct {
	Mode     HoldoutMode
	Percent  float64
	LastDays int
}

// HoldoutResult is the train/test split (spec 6 validate()).
type HoldoutResult struct {
	Train Window
	Test  Window
}

// Holdout splits bars at a single index per cfg.Mode, buckets trades by
// entryIndex into train/test, and aggregates each bucket.
func Holdout(trades []execution.Trade, bars bar.Series, cfg HoldoutConfig) (HoldoutResult, error) {
	n := len(bars)
	if n == 0 {
		return HoldoutResult{}, bterr.New(bterr.InsufficientData, "holdout split requires at least one bar")
	}

	var split int
	switch cfg.Mode {
	case HoldoutLastDays:
		cutoff := bars[n-1].T - int64(cfg.LastDays)*dayMs
		split = n - 1
		for i, b := range bars {
			if b.T >= cutoff {
				split = i
				break
			}
		}
	default: // percent
		split = int(math.Floor(float64(n-1) * cfg.Percent / 100))
	}
	if split < 0 {
		split = 0
	}
	if split > n-1 {
		split = n - 1
	}

	trainRange := Range{0, split}
	testRange := Range{split + 1, n - 1}

	return HoldoutResult{
		Train: buildWindow(trainRange, trades),
		Test:  buildWindow(testRange, trades),
	}, nil
}

func buildWindow(r Range, trades []execution.Trade) Window {
	sub := filterByEntryRange(trades, r)
	stats, perf := aggregate.Compute(sub, 0)
	return Window{Range: r, Stats: stats, Perf: perf}
}

func filterByEntryRange(trades []execution.Trade, r Range) []execution.Trade {
	var out []execution.Trade
	for _, t := range trades {
		if t.EntryIndex >= r.StartIndex && t.EntryIndex <= r.EndIndex {
			out = append(out, t)
		}
	}
	return out
}

func indexRangeForTime(bars bar.Series, fromT, toT int64) (Range, bool) {
	start, end := -1, -1
	for i, b := range bars {
		if b.T >= fromT && b.T < toT {
			if start == -1 {
				start = i
			}
			end = i
		}
	}
	if start == -1 {
		return Range{}, false
	}
	return Range{start, end}, true
}
