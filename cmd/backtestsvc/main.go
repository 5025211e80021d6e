// Command backtestsvc exposes the backtest engine over HTTP: run, validate,
// walk-forward, and optimize, the last of which streams progress over a
// websocket. Grounded on the teacher's main.go bootstrap shape (load
// config, init logging, build server, run with signal-driven shutdown).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kosheo/backtestcore/internal/optcache"
	"github.com/kosheo/backtestcore/internal/svc"
)

func main() {
	configPath := flag.String("config", "backtestsvc.json", "path to server config JSON")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "backtestsvc").Logger()

	cfg, err := svc.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	cache := buildCache(cfg.Redis)
	server := svc.NewServer(cfg, cache)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Int("port", cfg.Server.Port).Msg("starting backtestsvc")
	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("backtestsvc shut down cleanly")
}

// buildCache wires the Redis-backed optimizer cache when enabled and
// reachable, falling back to the in-process LRU otherwise — the same
// graceful-degradation posture the teacher's CacheService takes when
// Redis is unavailable at startup.
func buildCache(cfg svc.RedisConfig) optcache.Store {
	if !cfg.Enabled {
		return optcache.NewLRU(5000, time.Hour)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable at startup, falling back to in-process cache")
		return optcache.NewLRU(5000, time.Hour)
	}

	log.Info().Str("addr", cfg.Address).Msg("optimizer cache backed by redis")
	return optcache.NewRedisStore(client, "backtestcore:optcache:", 24*time.Hour)
}
