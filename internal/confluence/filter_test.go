package confluence

import (
	"testing"

	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/bias"
	"github.com/kosheo/backtestcore/internal/candidate"
)

func TestFilterDisabledPassesEverythingThrough(t *testing.T) {
	cands := []candidate.Candidate{{SignalIndex: 0, Side: bar.Buy}}
	out := Filter(cands, []bias.Direction{bias.Bear}, Config{Enabled: false})
	if len(out) != 1 {
		t.Fatalf("disabled filter should be a no-op, got %d candidates", len(out))
	}
	if out[0].Meta != nil {
		t.Errorf("disabled filter must not annotate Meta")
	}
}

func TestFilterKeepsBuyOnBullBiasAndDropsOnBearBias(t *testing.T) {
	cands := []candidate.Candidate{
		{SignalIndex: 0, Side: bar.Buy},
		{SignalIndex: 1, Side: bar.Buy},
	}
	htf := []bias.Direction{bias.Bull, bias.Bear}
	out := Filter(cands, htf, Config{Enabled: true})

	if len(out) != 1 {
		t.Fatalf("expected only the bull-aligned buy to survive, got %d", len(out))
	}
	if out[0].SignalIndex != 0 {
		t.Errorf("surviving candidate SignalIndex = %d, want 0", out[0].SignalIndex)
	}
}

func TestFilterNeutralBiasGatedByAllowNeutral(t *testing.T) {
	cands := []candidate.Candidate{{SignalIndex: 0, Side: bar.Buy}}
	htf := []bias.Direction{bias.Neutral}

	blocked := Filter(cands, htf, Config{Enabled: true, AllowNeutral: false})
	if len(blocked) != 0 {
		t.Fatalf("expected neutral bias to block when AllowNeutral is false, got %d", len(blocked))
	}

	allowed := Filter(cands, htf, Config{Enabled: true, AllowNeutral: true})
	if len(allowed) != 1 {
		t.Fatalf("expected neutral bias to pass when AllowNeutral is true, got %d", len(allowed))
	}
}

func TestFilterUsesEntryIndexWhenBiasReferenceIsEntry(t *testing.T) {
	cands := []candidate.Candidate{{SignalIndex: 0, EntryIndex: 1, Side: bar.Buy}}
	htf := []bias.Direction{bias.Bear, bias.Bull} // signal bar says bear, entry bar says bull

	out := Filter(cands, htf, Config{Enabled: true, BiasReference: ReferenceEntry})
	if len(out) != 1 {
		t.Fatalf("expected the entry-index bias (bull) to keep the buy candidate, got %d", len(out))
	}
}

func TestFilterDropsCandidateWhenReferenceIndexOutOfRange(t *testing.T) {
	cands := []candidate.Candidate{{SignalIndex: 5, Side: bar.Buy}}
	htf := []bias.Direction{bias.Bull}

	out := Filter(cands, htf, Config{Enabled: true})
	if len(out) != 0 {
		t.Fatalf("expected an out-of-range bias reference to drop the candidate, got %d", len(out))
	}
}

func TestFilterAnnotatesSurvivingCandidateMeta(t *testing.T) {
	cands := []candidate.Candidate{{SignalIndex: 0, Side: bar.Buy}}
	htf := []bias.Direction{bias.Bull}

	out := Filter(cands, htf, Config{Enabled: true, HTFResolution: "4h", BiasMode: bias.ModeEMA})
	if len(out) != 1 {
		t.Fatalf("expected one surviving candidate, got %d", len(out))
	}
	if out[0].Meta["htfBias"] != "bull" {
		t.Errorf("Meta[htfBias] = %v, want bull", out[0].Meta["htfBias"])
	}
	if out[0].Meta["htfResolution"] != "4h" {
		t.Errorf("Meta[htfResolution] = %v, want 4h", out[0].Meta["htfResolution"])
	}
	if out[0].Meta["confluenceStrength"] != 1.0 {
		t.Errorf("Meta[confluenceStrength] = %v, want 1.0 for full alignment", out[0].Meta["confluenceStrength"])
	}
	if out[0].Meta["confluenceGrade"] != "A+" {
		t.Errorf("Meta[confluenceGrade] = %v, want A+ for full alignment", out[0].Meta["confluenceGrade"])
	}
}
