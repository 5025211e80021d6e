package confluence

import (
	"testing"

	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/bias"
)

func TestStrengthFullAlignmentVsNeutral(t *testing.T) {
	if got := Strength(bar.Buy, bias.Bull); got != 1.0 {
		t.Errorf("Strength(buy, bull) = %v, want 1.0", got)
	}
	if got := Strength(bar.Sell, bias.Bear); got != 1.0 {
		t.Errorf("Strength(sell, bear) = %v, want 1.0", got)
	}
	if got := Strength(bar.Buy, bias.Neutral); got != 0.5 {
		t.Errorf("Strength(buy, neutral) = %v, want 0.5", got)
	}
}

func TestStrengthDisagreementScoresZero(t *testing.T) {
	if got := Strength(bar.Sell, bias.Bull); got != 0.0 {
		t.Errorf("Strength(sell, bull) = %v, want 0.0", got)
	}
	if got := Strength(bar.Buy, bias.Bear); got != 0.0 {
		t.Errorf("Strength(buy, bear) = %v, want 0.0", got)
	}
}

func TestGradeBuckets(t *testing.T) {
	cases := []struct {
		strength float64
		want     string
	}{
		{1.0, "A+"},
		{0.90, "A+"},
		{0.80, "A"},
		{0.75, "A"},
		{0.65, "B"},
		{0.60, "B"},
		{0.1, "C"},
	}
	for _, tc := range cases {
		if got := Grade(tc.strength); got != tc.want {
			t.Errorf("Grade(%v) = %q, want %q", tc.strength, got, tc.want)
		}
	}
}
