package svc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/candidate"
	"github.com/kosheo/backtestcore/internal/confluence"
	"github.com/kosheo/backtestcore/internal/engine"
	"github.com/kosheo/backtestcore/internal/execution"
	"github.com/kosheo/backtestcore/internal/optimize"
)

type optimizeRequest struct {
	Bars       bar.Series        `json:"bars"`
	HTFBars    bar.Series        `json:"htfBars"`
	BaseConfig candidate.Config  `json:"baseConfig"`
	Execution  execution.Config  `json:"execution"`
	Confluence confluence.Config `json:"confluence"`
	EquityBase float64           `json:"equityBase"`
	Grid       optimize.Grid     `json:"grid"`
	MaxCombos  int               `json:"maxCombos"`
	MaxWorkers int               `json:"maxWorkers"`
	Ranking    optimize.RankKey  `json:"ranking"`
	TopN       int               `json:"topN"`
}

func barsID(bars bar.Series) string {
	buf, _ := json.Marshal(bars)
	h := sha256.Sum256(buf)
	return hex.EncodeToString(h[:])
}

// handleStartOptimize validates the grid against the base strategy's own
// field set, registers a session, and runs it in the background — the
// endpoint returns immediately with a sessionId the caller polls or
// streams (spec 4.8: the optimizer is long-running and yields between
// combinations, so it is never run synchronously in a request handler).
func (s *Server) handleStartOptimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	names, err := fieldNames(req.BaseConfig)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	for _, f := range req.Grid.Fields {
		if !known[f] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "grid field " + f + " is not a field of the base strategy config"})
			return
		}
	}

	sessionID, rs := s.sessions.create()
	ctx, cancel := context.WithCancel(context.Background())
	rs.cancel = cancel

	go func() {
		session, err := engine.Optimize(ctx, engine.OptimizeInput{
			Bars:       req.Bars,
			HTFBars:    req.HTFBars,
			BaseConfig: req.BaseConfig,
			Execution:  req.Execution,
			Confluence: req.Confluence,
			EquityBase: req.EquityBase,
			Grid:       req.Grid,
			MaxCombos:  req.MaxCombos,
			MaxWorkers: req.MaxWorkers,
			Ranking:    req.Ranking,
			TopN:       req.TopN,
			Apply:      applyCombination,
			Cache:      s.cache,
			BarsID:     barsID(req.Bars),
		}, cancelToken{r: rs}, rs.publish)
		if err != nil {
			log.Error().Err(err).Str("sessionId", sessionID).Msg("optimizer session failed")
			session = optimize.Session{SessionID: sessionID, Status: optimize.StatusFailed, Error: err.Error()}
		}
		rs.finish(session)
	}()

	c.JSON(http.StatusAccepted, gin.H{"sessionId": sessionID, "status": optimize.StatusRunning})
}

func (s *Server) handleGetOptimizeSession(c *gin.Context) {
	rs, ok := s.sessions.get(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "unknown optimizer session"})
		return
	}
	c.JSON(http.StatusOK, rs.snapshot())
}

// handleCancelOptimize sets the cooperative cancel flag; the run stops at
// the next combination boundary and the session transitions to cancelled,
// retaining whatever results it had already produced.
func (s *Server) handleCancelOptimize(c *gin.Context) {
	rs, ok := s.sessions.get(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "unknown optimizer session"})
		return
	}
	rs.mu.Lock()
	rs.canceled = true
	cancel := rs.cancel
	rs.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}
