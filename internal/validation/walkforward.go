package validation

import (
	"math"

	"github.com/kosheo/backtestcore/internal/aggregate"
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/execution"
)

// WalkForwardConfig parameterizes the rolling fold schedule.
type WalkForwardConfig struct {
	TrainDays int
	TestDays  int
	StepDays  int
	MinTrades int
}

// Fold is one (train window, test window) pair (spec 3).
type Fold struct {
	ID    int
	Train Window
	Test  Window
}

// DriftFlag names a diagnostic raised against the overall walk-forward
// history (spec 4.7).
type DriftFlag string

const (
	LowPositiveFraction   DriftFlag = "LOW_POSITIVE_FRACTION"
	RecentNetRDegraded    DriftFlag = "RECENT_NETR_DEGRADED"
	RecentWinRateDegraded DriftFlag = "RECENT_WINRATE_DEGRADED"
	RecentPFBelowOne      DriftFlag = "RECENT_PF_BELOW_ONE"
	LastTwoNegative       DriftFlag = "LAST_TWO_NEGATIVE"
	LowStability          DriftFlag = "LOW_STABILITY"
)

// Summary aggregates a fold set (spec 3 WalkForwardSummary).
type Summary struct {
	AvgNetR            float64
	AvgExpectancy      float64
	AvgWinRate         float64
	AvgProfitFactor    float64
	AvgMaxDrawdown     float64
	PositiveNetPct     float64
	StabilityScore     float64
	DriftFlags         []DriftFlag
	RecentNetR         float64
	RecentWinRate      float64
	RecentProfitFactor float64
}

// WalkForward runs a rolling train/test schedule over bars, discards folds
// whose train or test bucket falls short of MinTrades, and (when at least
// one fold survives) computes the aggregate Summary. No error is raised
// when the schedule doesn't fit the data (spec scenario S4): folds comes
// back empty and summary is nil.
func WalkForward(trades []execution.Trade, bars bar.Series, cfg WalkForwardConfig) ([]Fold, *Summary, error) {
	if len(bars) == 0 {
		return nil, nil, nil
	}

	trainMs := int64(cfg.TrainDays) * dayMs
	testMs := int64(cfg.TestDays) * dayMs
	stepMs := int64(cfg.StepDays) * dayMs
	if stepMs <= 0 {
		stepMs = trainMs + testMs
	}

	startT := bars[0].T
	endT := bars[len(bars)-1].T

	var folds []Fold
	id := 0
	for curStart := startT; ; curStart += stepMs {
		trainEnd := curStart + trainMs
		testEnd := trainEnd + testMs
		if testEnd > endT+1 {
			break
		}

		trainRange, okTrain := indexRangeForTime(bars, curStart, trainEnd)
		testRange, okTest := indexRangeForTime(bars, trainEnd, testEnd)
		if !okTrain || !okTest {
			continue
		}

		train := buildWindow(trainRange, trades)
		test := buildWindow(testRange, trades)
		if train.Stats.Closed < cfg.MinTrades || test.Stats.Closed < cfg.MinTrades {
			continue
		}

		folds = append(folds, Fold{ID: id, Train: train, Test: test})
		id++
	}

	if len(folds) == 0 {
		return nil, nil, nil
	}

	summary := computeSummary(folds)
	return folds, &summary, nil
}

func computeSummary(folds []Fold) Summary {
	n := float64(len(folds))
	netRs := make([]float64, len(folds))
	winRates := make([]float64, len(folds))
	pfs := make([]float64, len(folds))

	var sumNetR, sumExpectancy, sumWinRate, sumPF, sumDD, positive float64
	for i, f := range folds {
		netRs[i] = f.Test.Perf.NetR
		winRates[i] = orZero(f.Test.Stats.WinRate)
		pfs[i] = orZero(f.Test.Stats.ProfitFactor)

		sumNetR += f.Test.Perf.NetR
		sumExpectancy += orZero(f.Test.Stats.Expectancy)
		sumWinRate += winRates[i]
		sumPF += pfs[i]
		sumDD += f.Test.Perf.MaxDrawdown
		if f.Test.Perf.NetR > 0 {
			positive++
		}
	}

	s := Summary{
		AvgNetR:         sumNetR / n,
		AvgExpectancy:   sumExpectancy / n,
		AvgWinRate:      sumWinRate / n,
		AvgProfitFactor: sumPF / n,
		AvgMaxDrawdown:  sumDD / n,
		PositiveNetPct:  positive / n,
	}

	recentFolds := folds
	if len(recentFolds) > 3 {
		recentFolds = recentFolds[len(recentFolds)-3:]
	}
	var rNetR, rWinRate, rPF float64
	for _, f := range recentFolds {
		rNetR += f.Test.Perf.NetR
		rWinRate += orZero(f.Test.Stats.WinRate)
		rPF += orZero(f.Test.Stats.ProfitFactor)
	}
	rn := float64(len(recentFolds))
	s.RecentNetR = rNetR / rn
	s.RecentWinRate = rWinRate / rn
	s.RecentProfitFactor = rPF / rn

	cvNetR := coefficientOfVariation(netRs)
	cvWinRate := coefficientOfVariation(winRates)
	cvPF := coefficientOfVariation(pfs)

	s.StabilityScore = math.Round(100 * (0.45*s.PositiveNetPct +
		0.30*stabilityTerm(cvNetR, 1.5) +
		0.15*stabilityTerm(cvWinRate, 0.5) +
		0.10*stabilityTerm(cvPF, 0.75)))

	s.DriftFlags = driftFlags(s, folds)
	return s
}

func driftFlags(s Summary, folds []Fold) []DriftFlag {
	var flags []DriftFlag
	if s.PositiveNetPct < 0.5 {
		flags = append(flags, LowPositiveFraction)
	}
	if s.RecentNetR < 0.4*s.AvgNetR {
		flags = append(flags, RecentNetRDegraded)
	}
	if s.RecentWinRate < s.AvgWinRate-0.15 {
		flags = append(flags, RecentWinRateDegraded)
	}
	if s.AvgProfitFactor >= 1.1 && s.RecentProfitFactor < 1.0 {
		flags = append(flags, RecentPFBelowOne)
	}
	if len(folds) >= 2 {
		last := folds[len(folds)-1].Test.Perf.NetR
		secondLast := folds[len(folds)-2].Test.Perf.NetR
		if last < 0 && secondLast < 0 {
			flags = append(flags, LastTwoNegative)
		}
	}
	if s.StabilityScore < 50 {
		flags = append(flags, LowStability)
	}
	return flags
}

// stabilityTerm implements S(cv, cap) = max(0, 1 - min(cap, cv)/cap).
func stabilityTerm(cv, capVal float64) float64 {
	clamped := math.Min(capVal, cv)
	v := 1 - clamped/capVal
	if v < 0 {
		return 0
	}
	return v
}

func coefficientOfVariation(xs []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= n
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= n
	return math.Sqrt(variance) / math.Abs(mean)
}

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
