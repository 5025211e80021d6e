package svc

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kosheo/backtestcore/internal/bar"
	"github.com/kosheo/backtestcore/internal/bterr"
	"github.com/kosheo/backtestcore/internal/candidate"
	"github.com/kosheo/backtestcore/internal/confluence"
	"github.com/kosheo/backtestcore/internal/engine"
	"github.com/kosheo/backtestcore/internal/execution"
	"github.com/kosheo/backtestcore/internal/validation"
)

func writeErr(c *gin.Context, err error) {
	kind := bterr.InvalidInput
	msg := err.Error()
	if be, ok := err.(*bterr.Error); ok {
		kind = be.Kind
		msg = be.Message
	}

	status := http.StatusBadRequest
	switch kind {
	case bterr.InsufficientData, bterr.BiasUnavailable:
		status = http.StatusUnprocessableEntity
	case bterr.ConfigConflict:
		status = http.StatusConflict
	case bterr.Cancelled:
		status = http.StatusGone
	}

	log.Warn().Str("kind", string(kind)).Str("message", msg).Msg("request failed")
	c.JSON(status, gin.H{"error": string(kind), "message": msg})
}

type runBacktestRequest struct {
	Bars       bar.Series         `json:"bars"`
	HTFBars    bar.Series         `json:"htfBars"`
	Strategies []candidate.Config `json:"strategies"`
	Execution  execution.Config   `json:"execution"`
	Confluence confluence.Config  `json:"confluence"`
	EquityBase float64            `json:"equityBase"`
}

func (s *Server) handleRunBacktest(c *gin.Context) {
	var req runBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	result, err := engine.RunBacktest(engine.BacktestInput{
		Bars:       req.Bars,
		HTFBars:    req.HTFBars,
		Strategies: req.Strategies,
		Execution:  req.Execution,
		Confluence: req.Confluence,
		EquityBase: req.EquityBase,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type validateRequest struct {
	Trades []execution.Trade        `json:"trades"`
	Bars   bar.Series               `json:"bars"`
	Config validation.HoldoutConfig `json:"config"`
}

func (s *Server) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	result, err := engine.Validate(req.Trades, req.Bars, req.Config)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type walkForwardRequest struct {
	Trades []execution.Trade            `json:"trades"`
	Bars   bar.Series                   `json:"bars"`
	Config validation.WalkForwardConfig `json:"config"`
}

func (s *Server) handleWalkForward(c *gin.Context) {
	var req walkForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	folds, summary, err := engine.WalkForward(req.Trades, req.Bars, req.Config)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folds": folds, "summary": summary})
}
