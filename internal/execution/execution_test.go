package execution

import (
	"testing"

	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/candidate"
)

func baseBars() bar.Series {
	return bar.Series{
		{T: 0, O: 100, H: 101, L: 99, C: 100},
		{T: 3600000, O: 100, H: 102, L: 98, C: 101},
		{T: 7200000, O: 101, H: 103, L: 99.5, C: 102},
	}
}

func baseCfg() Config {
	return Config{
		EntryTiming: NextOpen,
		OrderType:   Market,
		ExitMode:    ExitTouch,
		ATRPeriod:   1,
	}
}

func TestValidateRejectsSignalCloseWithNonMarketOrder(t *testing.T) {
	cfg := Config{EntryTiming: SignalClose, OrderType: Limit, ExitMode: ExitTouch}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected ConfigConflict for signal_close + non-market order type")
	}
}

func TestValidateRejectsUnknownExitMode(t *testing.T) {
	cfg := Config{EntryTiming: NextOpen, OrderType: Market, ExitMode: "bogus"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown exit mode")
	}
}

func TestRunResolvesMarketEntryAndTakeProfitExit(t *testing.T) {
	bars := baseBars()
	cands := []candidate.Candidate{{
		SignalIndex: 0,
		Side:        bar.Buy,
		EntryPrice:  100,
		StopLoss:    99,
		TakeProfit:  102,
	}}

	trades, err := Run(bars, cands, baseCfg())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected one trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.EntryIndex != 1 {
		t.Errorf("EntryIndex = %d, want 1 (next_open)", tr.EntryIndex)
	}
	if tr.EntryPrice != 100 {
		t.Errorf("EntryPrice = %v, want 100 (no costs configured)", tr.EntryPrice)
	}
	if tr.ExitReason != "tp" {
		t.Fatalf("ExitReason = %q, want tp", tr.ExitReason)
	}
	if tr.RMultiple == nil || *tr.RMultiple != 2 {
		t.Fatalf("RMultiple = %v, want 2", tr.RMultiple)
	}
	if tr.Outcome != bar.OutcomeWin {
		t.Errorf("Outcome = %v, want win", tr.Outcome)
	}
}

func TestRunAppliesFixedSpreadAndSlippageToEntryPrice(t *testing.T) {
	bars := baseBars()
	cands := []candidate.Candidate{{
		SignalIndex: 0,
		Side:        bar.Buy,
		EntryPrice:  100,
		StopLoss:    99,
		TakeProfit:  102,
	}}
	cfg := baseCfg()
	cfg.Spread = CostConfig{Model: CostFixed, Value: 1}
	cfg.Slippage = CostConfig{Model: CostFixed, Value: 0.5}

	trades, err := Run(bars, cands, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected one trade, got %d", len(trades))
	}
	// entry = 100 + (spread/2 + slippage) = 100 + (0.5 + 0.5) = 101
	if trades[0].EntryPrice != 101 {
		t.Errorf("EntryPrice = %v, want 101", trades[0].EntryPrice)
	}
}

func TestScanExitTieBreakDefaultsToStopLoss(t *testing.T) {
	bars := bar.Series{
		{T: 0, O: 100, H: 101, L: 99, C: 100},
		{T: 1, O: 100, H: 102, L: 98, C: 101},
		{T: 2, O: 101, H: 103, L: 99, C: 102}, // touches both stop(99) and tp(102)
	}
	cands := []candidate.Candidate{{
		SignalIndex: 0,
		Side:        bar.Buy,
		EntryPrice:  100,
		StopLoss:    99,
		TakeProfit:  102,
	}}
	cfg := baseCfg()

	trades, err := Run(bars, cands, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 || trades[0].ExitReason != "sl" {
		t.Fatalf("expected default tie-break to favor stop loss, got %+v", trades)
	}
}

func TestScanExitTieBreakerTPWins(t *testing.T) {
	bars := bar.Series{
		{T: 0, O: 100, H: 101, L: 99, C: 100},
		{T: 1, O: 100, H: 102, L: 98, C: 101},
		{T: 2, O: 101, H: 103, L: 99, C: 102},
	}
	cands := []candidate.Candidate{{
		SignalIndex: 0,
		Side:        bar.Buy,
		EntryPrice:  100,
		StopLoss:    99,
		TakeProfit:  102,
	}}
	cfg := baseCfg()
	cfg.TieBreaker = TieTP

	trades, err := Run(bars, cands, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 || trades[0].ExitReason != "tp" {
		t.Fatalf("expected TieTP to favor take profit, got %+v", trades)
	}
}

func TestExitModeCloseIgnoresWickTouches(t *testing.T) {
	bars := bar.Series{
		{T: 0, O: 100, H: 101, L: 99, C: 100},
		{T: 1, O: 100, H: 102, L: 98, C: 101}, // entry bar, excluded from exit scan
		{T: 2, O: 101, H: 103, L: 98, C: 100}, // wick crosses both stop and tp, close stays between
		{T: 3, O: 100, H: 103, L: 99.5, C: 102.5}, // close finally crosses tp
	}
	cands := []candidate.Candidate{{
		SignalIndex: 0,
		Side:        bar.Buy,
		EntryPrice:  100,
		StopLoss:    99,
		TakeProfit:  102,
	}}
	cfg := baseCfg()
	cfg.ExitMode = ExitClose

	trades, err := Run(bars, cands, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected one trade, got %d", len(trades))
	}
	if trades[0].ExitReason != "tp" {
		t.Fatalf("expected close-mode exit to ignore the wick-only touch on bar 2, got %q at bar %v",
			trades[0].ExitReason, trades[0].ExitIndex)
	}
	if trades[0].ExitIndex == nil || *trades[0].ExitIndex != 3 {
		t.Fatalf("expected the exit to resolve on bar 3 (closing price), got %v", trades[0].ExitIndex)
	}
}

func TestMinStopSkipDropsCandidateBelowMinimumDistance(t *testing.T) {
	bars := baseBars()
	cands := []candidate.Candidate{{
		SignalIndex: 0,
		Side:        bar.Buy,
		EntryPrice:  100,
		StopLoss:    99.9, // risk of 0.1, below the minimum
		TakeProfit:  102,
	}}
	cfg := baseCfg()
	cfg.MinStop = MinStopConfig{Value: 1, Mode: MinStopSkip}

	trades, err := Run(bars, cands, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("expected the candidate to be dropped under MinStopSkip, got %d trades", len(trades))
	}
}

func TestMinStopAdjustWidensStopToMinimum(t *testing.T) {
	bars := baseBars()
	cands := []candidate.Candidate{{
		SignalIndex: 0,
		Side:        bar.Buy,
		EntryPrice:  100,
		StopLoss:    99.9,
		TakeProfit:  102,
	}}
	cfg := baseCfg()
	cfg.MinStop = MinStopConfig{Value: 1, Mode: MinStopAdjust}

	trades, err := Run(bars, cands, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected one trade under MinStopAdjust, got %d", len(trades))
	}
	if trades[0].StopLoss != 99 { // entry(100) - minDist(1)
		t.Errorf("StopLoss = %v, want 99 (entry - minDist)", trades[0].StopLoss)
	}
}

func TestPartialFillReducesRatioOnThinRangeBar(t *testing.T) {
	bars := bar.Series{
		{T: 0, O: 100, H: 101, L: 99, C: 100},
		{T: 1, O: 100, H: 100.1, L: 99.95, C: 100.05}, // very thin range at entry bar
		{T: 2, O: 100.05, H: 103, L: 99, C: 102},
	}
	cands := []candidate.Candidate{{
		SignalIndex: 0,
		Side:        bar.Buy,
		EntryPrice:  100,
		StopLoss:    99,
		TakeProfit:  102,
	}}
	cfg := baseCfg()
	cfg.PartialFill = PartialFillConfig{Mode: PartialFillRange, ATRMult: 5, MinRatio: 0.2}

	trades, err := Run(bars, cands, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected one trade, got %d", len(trades))
	}
	if trades[0].FillRatio >= 1 {
		t.Fatalf("expected a partial fill ratio below 1 on the thin-range entry bar, got %v", trades[0].FillRatio)
	}
	if trades[0].FillRatio < cfg.PartialFill.MinRatio {
		t.Fatalf("FillRatio %v should never drop below MinRatio %v", trades[0].FillRatio, cfg.PartialFill.MinRatio)
	}
}

func TestRunLeavesUnresolvedCandidateOpenAtSeriesEnd(t *testing.T) {
	bars := bar.Series{
		{T: 0, O: 100, H: 101, L: 99, C: 100},
		{T: 1, O: 100, H: 100.5, L: 99.5, C: 100.2}, // never reaches stop or target
	}
	cands := []candidate.Candidate{{
		SignalIndex: 0,
		Side:        bar.Buy,
		EntryPrice:  100,
		StopLoss:    90,
		TakeProfit:  200,
	}}
	cfg := baseCfg()

	trades, err := Run(bars, cands, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected one trade, got %d", len(trades))
	}
	if trades[0].Outcome != bar.OutcomeOpen || trades[0].ExitReason != "open" {
		t.Fatalf("expected an unresolved trade to be reported open, got %+v", trades[0])
	}
}
