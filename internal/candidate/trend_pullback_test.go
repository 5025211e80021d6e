package candidate

import (
	"testing"

	"github.com/kosheo/backtestcore/internal/bar"
)

// risingTrendBars builds a monotonically rising close sequence (so the fast
// EMA stays above the slow EMA once both are seeded). Every bar is a
// bullish candle (C > O) except bearishAt, which is flipped to a bearish
// candle (C < O) while keeping the same close, to isolate the confirm-candle
// direction check from the underlying trend classification.
func risingTrendBars(n int, bearishAt int) bar.Series {
	out := make(bar.Series, n)
	for i := 0; i < n; i++ {
		c := float64(i + 1)
		if i == bearishAt {
			out[i] = bar.Bar{T: int64(i), O: c + 0.5, H: c + 1, L: c - 0.5, C: c}
		} else {
			out[i] = bar.Bar{T: int64(i), O: c - 0.5, H: c + 0.5, L: c - 1, C: c}
		}
	}
	return out
}

func TestTrendPullbackRejectsBearishConfirmCandleInUptrend(t *testing.T) {
	bars := risingTrendBars(7, 6) // bearish candle at the last index

	cands, err := generateTrendPullback(bars, TrendPullbackConfig{
		EMAFast:         2,
		EMASlow:         4,
		ATRPeriod:       2,
		MinTrendBars:    0,
		PullbackAtrMult: 1000, // band wide enough that "touched" is never the limiting factor
		ConfirmMode:     Touch,
		RR:              1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range cands {
		if c.SignalIndex == 6 {
			t.Fatalf("bearish confirm candle must not produce a buy-side candidate, got %+v", c)
		}
	}
}

func TestTrendPullbackFiresOnBullishConfirmCandleInUptrend(t *testing.T) {
	bars := risingTrendBars(7, -1) // no flipped bar; every candle bullish

	cands, err := generateTrendPullback(bars, TrendPullbackConfig{
		EMAFast:         2,
		EMASlow:         4,
		ATRPeriod:       2,
		MinTrendBars:    0,
		PullbackAtrMult: 1000,
		ConfirmMode:     Touch,
		RR:              1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, c := range cands {
		if c.SignalIndex == 6 {
			found = true
			if c.Side != bar.Buy {
				t.Errorf("Side = %v, want Buy", c.Side)
			}
		}
	}
	if !found {
		t.Fatalf("expected a candidate at index 6 once the uptrend and bullish confirm candle align")
	}
}

func TestTrendPullbackRequiresMinTrendBarsPersistence(t *testing.T) {
	bars := risingTrendBars(7, -1)

	cands, err := generateTrendPullback(bars, TrendPullbackConfig{
		EMAFast:         2,
		EMASlow:         4,
		ATRPeriod:       2,
		MinTrendBars:    50, // far longer than the series, can never be satisfied
		PullbackAtrMult: 1000,
		ConfirmMode:     Touch,
		RR:              1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected no candidates when MinTrendBars can never be satisfied, got %d", len(cands))
	}
}
