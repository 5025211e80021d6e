// Package bias computes higher-timeframe directional bias and projects it
// onto a lower-timeframe index axis. Generalized from the teacher's
// internal/analysis/trend.go (swing-based trend classification) and
// internal/analysis/timeframe.go (per-bar timeframe lookup), replaced here
// with the spec's EMA/SMA/range classifiers and a precomputed HTF index
// array (spec Design Note: "HTF index mapping replaces pointer-chasing in
// the source").
package bias

import (
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/indicator"
)

// Direction is the classified bias of one HTF bar.
type Direction string

const (
	Bull    Direction = "bull"
	Bear    Direction = "bear"
	Neutral Direction = "neutral"
)

// Mode selects how HTF bias is classified.
type Mode string

const (
	ModeEMA   Mode = "ema"
	ModeSMA   Mode = "sma"
	ModeRange Mode = "range"
)

// Config controls bias classification and HTF->LTF projection.
type Config struct {
	Mode          Mode
	EMAFast       int
	EMASlow       int
	SMAPeriod     int
	RangeLookback int
	UsePrevHTFBar bool
}

// Result holds the per-HTF-bar classification and its projection onto the
// LTF index axis.
type Result struct {
	HTFBias        []Direction // one per HTF bar
	HTFBiasByIndex []Direction // one per LTF bar, per spec 4.2
}

// Compute classifies every HTF bar and projects the classification onto
// every LTF bar index. htfIdx maps LTF index i to the HTF bar whose open
// time is the latest HTF open time <= ltf[i].T (or the previous closed HTF
// bar when UsePrevHTFBar is set). An LTF bar with no such HTF bar is Neutral.
func Compute(htf, ltf bar.Series, cfg Config) Result {
	htfBias := classify(htf, cfg)

	byIndex := make([]Direction, len(ltf))
	htfIdx := 0
	for i, b := range ltf {
		if len(htf) == 0 || htf[0].T > b.T {
			byIndex[i] = Neutral
			continue
		}
		for htfIdx+1 < len(htf) && htf[htfIdx+1].T <= b.T {
			htfIdx++
		}
		use := htfIdx
		if cfg.UsePrevHTFBar {
			use--
		}
		if use < 0 || use >= len(htfBias) {
			byIndex[i] = Neutral
			continue
		}
		byIndex[i] = htfBias[use]
	}

	return Result{HTFBias: htfBias, HTFBiasByIndex: byIndex}
}

func classify(htf bar.Series, cfg Config) []Direction {
	out := make([]Direction, len(htf))
	for i := range out {
		out[i] = Neutral
	}

	switch cfg.Mode {
	case ModeEMA:
		fast := indicator.EMA(htf, cfg.EMAFast)
		slow := indicator.EMA(htf, cfg.EMASlow)
		for i := range htf {
			if !fast[i].Valid || !slow[i].Valid {
				continue
			}
			out[i] = fromCompare(fast[i].V, slow[i].V)
		}
	case ModeSMA:
		sma := indicator.SMA(htf, cfg.SMAPeriod)
		for i, b := range htf {
			if !sma[i].Valid {
				continue
			}
			out[i] = fromCompare(b.C, sma[i].V)
		}
	case ModeRange:
		hi := indicator.RollingMax(htf, cfg.RangeLookback)
		lo := indicator.RollingMin(htf, cfg.RangeLookback)
		for i, b := range htf {
			if !hi[i].Valid || !lo[i].Valid {
				continue
			}
			mid := (hi[i].V + lo[i].V) / 2
			out[i] = fromCompare(b.C, mid)
		}
	}
	return out
}

func fromCompare(a, b float64) Direction {
	if a > b {
		return Bull
	}
	if a < b {
		return Bear
	}
	return Neutral
}

// ReferenceIndex chooses which LTF index a candidate's bias lookup should
// use, per spec 4.2 (signal vs entry reference).
func ReferenceIndex(signalIndex, entryIndex int, useEntry bool) int {
	if useEntry {
		return entryIndex
	}
	return signalIndex
}
