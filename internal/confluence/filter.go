// Package confluence gates candidates by higher-timeframe bias (spec 4.5)
// and scores the survivors' bias alignment strength (spec 12, additive,
// grounded on the teacher's scorer.go weighted-confluence shape).
package confluence

import (
	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/bias"
	"github.com/kosheo/backtestcore/internal/candidate"
)

// BiasReference selects which candidate index the bias lookup uses.
type BiasReference string

const (
	ReferenceSignal BiasReference = "signal"
	ReferenceEntry  BiasReference = "entry"
)

// Config is the ConfluenceConfig record (spec 3).
type Config struct {
	Enabled       bool
	HTFResolution string
	BiasMode      bias.Mode
	EMAFast       int
	EMASlow       int
	SMAPeriod     int
	RangeLookback int
	AllowNeutral  bool
	UsePrevHTFBar bool
	BiasReference BiasReference
}

// Filter drops or keeps candidates by comparing HTF bias at the configured
// reference index. When cfg.Enabled is false or htfBiasByIndex is nil (the
// bias series is unavailable), Filter is a no-op and passes every
// candidate through unscored.
func Filter(candidates []candidate.Candidate, htfBiasByIndex []bias.Direction, cfg Config) []candidate.Candidate {
	if !cfg.Enabled || htfBiasByIndex == nil {
		return candidates
	}

	kept := make([]candidate.Candidate, 0, len(candidates))
	for _, c := range candidates {
		refIdx := bias.ReferenceIndex(c.SignalIndex, c.EntryIndex, cfg.BiasReference == ReferenceEntry)
		if refIdx < 0 || refIdx >= len(htfBiasByIndex) {
			continue
		}
		b := htfBiasByIndex[refIdx]

		if !passes(c, b, cfg.AllowNeutral) {
			continue
		}

		annotate(&c, b, cfg)
		kept = append(kept, c)
	}
	return kept
}

func passes(c candidate.Candidate, b bias.Direction, allowNeutral bool) bool {
	switch b {
	case bias.Bull:
		return c.Side == bar.Buy
	case bias.Bear:
		return c.Side == bar.Sell
	default: // neutral
		return allowNeutral
	}
}

func annotate(c *candidate.Candidate, b bias.Direction, cfg Config) {
	if c.Meta == nil {
		c.Meta = make(map[string]any)
	}
	c.Meta["htfBias"] = string(b)
	c.Meta["htfResolution"] = cfg.HTFResolution
	c.Meta["htfMode"] = string(cfg.BiasMode)
	c.Meta["htfReference"] = string(cfg.BiasReference)
	strength := Strength(c.Side, b)
	c.Meta["confluenceStrength"] = strength
	c.Meta["confluenceGrade"] = Grade(strength)
}
