package engine

import (
	"context"

	"github.com/kosheo/backtestcore/internal/aggregate"
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/bias"
	"github.com/kosheo/backtestcore/internal/bterr"
	"github.com/kosheo/backtestcore/internal/candidate"
	"github.com/kosheo/backtestcore/internal/confluence"
	"github.com/kosheo/backtestcore/internal/execution"
	"github.com/kosheo/backtestcore/internal/optcache"
	"github.com/kosheo/backtestcore/internal/optimize"
)

// OptimizeInput bundles the fixed parts of an optimizer run: the data and
// base configs every grid combination shares, plus the grid of fields the
// combination overrides (spec 6 optimize()).
type OptimizeInput struct {
	Bars       bar.Series
	HTFBars    bar.Series
	BaseConfig candidate.Config
	Execution  execution.Config
	Confluence confluence.Config
	EquityBase float64

	Grid       optimize.Grid
	MaxCombos  int
	MaxWorkers int
	Ranking    optimize.RankKey
	TopN       int

	// Apply overrides BaseConfig's fields named in the combination with
	// its values, returning the concrete per-combination strategy config.
	// Supplied by the caller because Combination values are untyped and
	// only the caller knows which candidate.Config field each grid field
	// name maps to.
	Apply func(base candidate.Config, combo optimize.Combination) candidate.Config

	// Cache and BarsID are both optional. When Cache is non-nil, each
	// combination is looked up by optcache.Key(BarsID, combo) before
	// evaluating and stored back afterward.
	Cache  optcache.Store
	BarsID string
}

// Optimize enumerates and evaluates a parameter grid (spec 6 optimize(),
// spec 4.8). Each combination runs independently through the same
// generate -> confluence -> simulate -> aggregate pipeline RunBacktest
// uses, so optimizer results and a manual single-config run always agree.
func Optimize(ctx context.Context, in OptimizeInput, cancel optimize.CancelToken, onProgress func(optimize.Progress)) (optimize.Session, error) {
	if err := in.Bars.Validate(); err != nil {
		return optimize.Session{}, bterr.Wrap(bterr.InvalidInput, "bar series failed validation", err)
	}

	var biasByIndex []bias.Direction
	if in.Confluence.Enabled {
		if len(in.HTFBars) == 0 {
			return optimize.Session{}, bterr.New(bterr.BiasUnavailable,
				"confluence is enabled but no HTF bar series was supplied")
		}
		biasByIndex = bias.Compute(in.HTFBars, in.Bars, bias.Config{
			Mode:          in.Confluence.BiasMode,
			EMAFast:       in.Confluence.EMAFast,
			EMASlow:       in.Confluence.EMASlow,
			SMAPeriod:     in.Confluence.SMAPeriod,
			RangeLookback: in.Confluence.RangeLookback,
			UsePrevHTFBar: in.Confluence.UsePrevHTFBar,
		}).HTFBiasByIndex
	}

	eval := func(ctx context.Context, combo optimize.Combination) (optimize.Result, error) {
		var cacheKey string
		if in.Cache != nil {
			cacheKey = optcache.Key(in.BarsID, combo)
			if cached, ok := in.Cache.Get(ctx, cacheKey); ok {
				return cached, nil
			}
		}

		cfg := in.Apply(in.BaseConfig, combo)

		cands, err := candidate.Generate(in.Bars, cfg)
		if err != nil {
			return optimize.Result{}, err
		}
		if in.Confluence.Enabled {
			cands = confluence.Filter(cands, biasByIndex, in.Confluence)
		}
		trades, err := execution.Run(in.Bars, cands, in.Execution)
		if err != nil {
			return optimize.Result{}, err
		}
		stats, perf := aggregate.Compute(trades, in.EquityBase)

		result := optimize.Result{
			Combo:        combo,
			Stats:        stats,
			NetR:         perf.NetR,
			MaxDrawdown:  perf.MaxDrawdown,
			WinRate:      stats.WinRate,
			Expectancy:   stats.Expectancy,
			ProfitFactor: stats.ProfitFactor,
		}
		if in.Cache != nil {
			in.Cache.Set(ctx, cacheKey, result)
		}
		return result, nil
	}

	session := optimize.Run(ctx, in.Grid, in.MaxCombos, in.MaxWorkers, eval, in.Ranking, in.TopN, cancel, onProgress)
	return session, nil
}
