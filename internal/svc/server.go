package svc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kosheo/backtestcore/internal/optcache"
)

// Server is the backtestsvc HTTP API: four JSON endpoints mirroring spec 6
// (run/validate/walkForward/optimize) plus a websocket for optimizer
// progress. Grounded on the teacher's internal/api.Server (gin.Engine +
// http.Server pair, CORS middleware, JWT gate on the protected group).
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        Config
	jwtManager *JWTManager
	cache      optcache.Store
	sessions   *sessionStore
}

// NewServer builds the router and registers routes. cache may be nil, in
// which case optimizer runs skip memoization entirely.
func NewServer(cfg Config, cache optcache.Store) *Server {
	if cfg.Auth.Enabled {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsCfg.AllowCredentials = true
	router.Use(cors.New(corsCfg))

	s := &Server{
		router:     router,
		cfg:        cfg,
		jwtManager: NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenDuration),
		cache:      cache,
		sessions:   newSessionStore(),
	}
	s.setupRoutes()
	return s
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.POST("/auth/login", s.handleLogin)

	api := s.router.Group("/api/v1")
	if s.cfg.Auth.Enabled {
		api.Use(RequireAuth(s.jwtManager))
	}
	api.POST("/backtest/run", s.handleRunBacktest)
	api.POST("/backtest/validate", s.handleValidate)
	api.POST("/backtest/walk-forward", s.handleWalkForward)
	api.POST("/backtest/optimize", s.handleStartOptimize)
	api.GET("/backtest/optimize/:sessionId", s.handleGetOptimizeSession)
	api.GET("/backtest/optimize/:sessionId/stream", s.handleOptimizeStream)
	api.DELETE("/backtest/optimize/:sessionId", s.handleCancelOptimize)
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("backtestsvc listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Username != s.cfg.Auth.OperatorUser {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := CheckOperatorPassword(s.cfg.Auth.OperatorPasswordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := s.jwtManager.GenerateAccessToken(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": token, "expiresIn": int(s.cfg.Auth.AccessTokenDuration.Seconds())})
}
