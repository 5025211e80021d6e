package optimize

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"
	"github.com/kosheo/backtestcore/internal/aggregate"
	"github.com/kosheo/backtestcore/internal/bterr"
)

// Result is one evaluated grid point (spec 3 OptimizerResult). Index is the
// combination's position in Enumerate's deterministic order; Rank sorts on
// it as a tie-break so results with an equal ranking metric land in a fixed
// order regardless of which worker goroutine finished first.
type Result struct {
	ID           string
	Index        int
	Combo        Combination
	Stats        aggregate.Stats
	NetR         float64
	MaxDrawdown  float64
	WinRate      *float64
	Expectancy   *float64
	ProfitFactor *float64
}

// SessionStatus is the lifecycle state of an OptimizerSession.
type SessionStatus string

const (
	StatusRunning   SessionStatus = "running"
	StatusComplete  SessionStatus = "complete"
	StatusCancelled SessionStatus = "cancelled"
	StatusFailed    SessionStatus = "failed"
)

// Progress reports combinations completed vs total attempted.
type Progress struct {
	Done  int
	Total int
}

// Session is the OptimizerSession record (spec 3).
type Session struct {
	SessionID string
	Status    SessionStatus
	Progress  Progress
	Results   []Result
	Truncated bool
	Attempted int
	Error     string
}

// Evaluator runs one grid combination through the generate -> confluence ->
// simulate -> aggregate pipeline and returns its Result. Evaluators must be
// safe to call concurrently: each sees its own Combination and no shared
// mutable state.
type Evaluator func(ctx context.Context, combo Combination) (Result, error)

// CancelToken is a cooperative, read-only cancellation flag polled between
// combination boundaries, never via panics/exceptions (spec 9).
type CancelToken interface {
	Cancelled() bool
}

// Run enumerates grid up to maxCombos, evaluates every combination with
// concurrency up to maxWorkers (1 disables concurrency), re-sorts
// deterministically by ranking before truncating to topN, and honors
// cancel at each combination boundary. Already-produced results survive a
// cancellation or a per-combination evaluation error; the session captures
// the first error message without discarding prior work.
func Run(ctx context.Context, grid Grid, maxCombos, maxWorkers int, eval Evaluator, ranking RankKey, topN int, cancel CancelToken, onProgress func(Progress)) Session {
	combos, truncated := Enumerate(grid, maxCombos)
	session := Session{
		SessionID: sessionID(combos, maxWorkers, ranking, topN),
		Status:    StatusRunning,
		Truncated: truncated,
		Attempted: len(combos),
	}

	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var mu sync.Mutex
	var done int32
	results := make([]Result, 0, len(combos))
	var firstErr string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	cancelled := false
loop:
	for i, combo := range combos {
		if cancel != nil && cancel.Cancelled() {
			cancelled = true
			break loop
		}
		combo := combo
		idx := i
		g.Go(func() error {
			r, err := eval(gctx, combo)
			n := int(atomic.AddInt32(&done, 1))
			if onProgress != nil {
				onProgress(Progress{Done: n, Total: len(combos)})
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == "" {
					firstErr = err.Error()
				}
				return nil
			}
			r.Index = idx
			r.ID = resultID(combo, idx)
			results = append(results, r)
			return nil
		})
	}
	_ = g.Wait()

	session.Results = Rank(results, ranking, topN)
	session.Progress = Progress{Done: int(done), Total: len(combos)}

	switch {
	case cancelled:
		session.Status = StatusCancelled
		session.Error = bterr.New(bterr.Cancelled, "optimizer session cancelled").Error()
	case firstErr != "":
		session.Status = StatusFailed
		session.Error = firstErr
	default:
		session.Status = StatusComplete
	}
	return session
}

// sessionID derives a stable session identifier from the enumerated
// combinations and ranking parameters rather than a random UUID v4, so that
// two Run calls over identical grids produce bit-identical Session records
// (spec §8 invariant 1).
func sessionID(combos []Combination, maxWorkers int, ranking RankKey, topN int) string {
	buf, _ := json.Marshal(combos)
	data := fmt.Sprintf("%s|%d|%s|%d", buf, maxWorkers, ranking, topN)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(data)).String()
}

// resultID derives a stable result identifier from the combination's
// content and its enumeration position, so re-running the same grid
// produces the same Result.ID regardless of worker-completion order.
func resultID(combo Combination, idx int) string {
	buf, _ := json.Marshal(combo)
	data := fmt.Sprintf("%d|%s", idx, buf)
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(data)).String()
}
