package confluence

import (
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/bias"
)

// Strength scores how strongly side agrees with HTF bias direction: full
// agreement scores 1.0, outright disagreement scores 0.0, and a neutral
// bias (only reachable when allowNeutral let the candidate through) scores
// 0.5. Descriptive metadata only, never changes which trades survive.
// Grounded on the teacher's ConfluenceScorer.CalculateConfluence
// weighted-score shape, reduced to the one signal this domain actually
// has: bias direction.
func Strength(side bar.Side, b bias.Direction) float64 {
	switch b {
	case bias.Bull:
		if side == bar.Buy {
			return 1.0
		}
		return 0.0
	case bias.Bear:
		if side == bar.Sell {
			return 1.0
		}
		return 0.0
	default:
		return 0.5
	}
}

// Grade buckets a strength score into the teacher's letter-grade scale.
func Grade(strength float64) string {
	switch {
	case strength >= 0.90:
		return "A+"
	case strength >= 0.75:
		return "A"
	case strength >= 0.60:
		return "B"
	default:
		return "C"
	}
}
