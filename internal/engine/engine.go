// Package engine exposes the four public operations spec 6 names:
// RunBacktest, Validate, WalkForward, and Optimize. It owns nothing itself
// — every computation lives in candidate/confluence/execution/aggregate/
// validation/optimize — this package only wires them in the order the spec
// describes and turns panics-never, errors-always boundary crossings into
// *bterr.Error. Grounded on the teacher's internal/backtest/backtest.go
// RunBacktest entrypoint, which plays the same "validate config, run the
// pipeline, assemble the result" role for the teacher's single strategy.
package engine

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/kosheo/backtestcore/internal/aggregate"
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/bias"
	"github.com/kosheo/backtestcore/internal/bterr"
	"github.com/kosheo/backtestcore/internal/candidate"
	"github.com/kosheo/backtestcore/internal/confluence"
	"github.com/kosheo/backtestcore/internal/execution"
	"github.com/kosheo/backtestcore/internal/validation"
)

// BacktestInput bundles everything RunBacktest needs (spec 6 run()).
type BacktestInput struct {
	Bars       bar.Series
	HTFBars    bar.Series // optional; required only when Confluence.Enabled
	Strategies []candidate.Config
	Execution  execution.Config
	Confluence confluence.Config
	EquityBase float64
}

// BacktestResult is the run() return shape (spec 3 BacktestResult).
type BacktestResult struct {
	Trades []execution.Trade
	Stats  aggregate.Stats
	Perf   aggregate.Performance
}

// RunBacktest generates candidates from every configured strategy family,
// merges and re-sorts them by SignalIndex (spec 4.1: generators run
// independently, their output is pooled before simulation), gates them on
// HTF confluence when enabled, simulates fills, and aggregates the result.
func RunBacktest(in BacktestInput) (BacktestResult, error) {
	if err := in.Bars.Validate(); err != nil {
		return BacktestResult{}, bterr.Wrap(bterr.InvalidInput, "bar series failed validation", err)
	}
	if len(in.Bars) == 0 {
		return BacktestResult{}, bterr.New(bterr.InsufficientData, "backtest requires at least one bar")
	}
	if err := in.Execution.Validate(); err != nil {
		return BacktestResult{}, err
	}
	if in.Confluence.Enabled && len(in.HTFBars) == 0 {
		return BacktestResult{}, bterr.New(bterr.BiasUnavailable,
			"confluence is enabled but no HTF bar series was supplied")
	}

	var all []candidate.Candidate
	for _, sc := range in.Strategies {
		cands, err := candidate.Generate(in.Bars, sc)
		if err != nil {
			return BacktestResult{}, bterr.Wrap(bterr.InvalidInput, "candidate generation failed", err,
				"setup", sc.SetupID())
		}
		all = append(all, cands...)
	}
	sortBySignal(all)

	if in.Confluence.Enabled {
		biasResult := bias.Compute(in.HTFBars, in.Bars, bias.Config{
			Mode:          in.Confluence.BiasMode,
			EMAFast:       in.Confluence.EMAFast,
			EMASlow:       in.Confluence.EMASlow,
			SMAPeriod:     in.Confluence.SMAPeriod,
			RangeLookback: in.Confluence.RangeLookback,
			UsePrevHTFBar: in.Confluence.UsePrevHTFBar,
		})
		all = confluence.Filter(all, biasResult.HTFBiasByIndex, in.Confluence)
	}

	trades, err := execution.Run(in.Bars, all, in.Execution)
	if err != nil {
		return BacktestResult{}, err
	}

	stats, perf := aggregate.Compute(trades, in.EquityBase)
	log.Debug().Int("candidates", len(all)).Int("trades", len(trades)).
		Int("closed", stats.Closed).Msg("backtest run complete")

	return BacktestResult{Trades: trades, Stats: stats, Perf: perf}, nil
}

func sortBySignal(cands []candidate.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].SignalIndex < cands[j].SignalIndex
	})
}

// Validate runs the holdout split (spec 6 validate()).
func Validate(trades []execution.Trade, bars bar.Series, cfg validation.HoldoutConfig) (validation.HoldoutResult, error) {
	return validation.Holdout(trades, bars, cfg)
}

// WalkForward runs the rolling train/test schedule (spec 6 walkForward()).
func WalkForward(trades []execution.Trade, bars bar.Series, cfg validation.WalkForwardConfig) ([]validation.Fold, *validation.Summary, error) {
	return validation.WalkForward(trades, bars, cfg)
}
