// Package svc wires the backtest engine behind an HTTP API: config
// loading, JWT/bcrypt auth, CORS, and an optimizer-progress websocket.
// Grounded on the teacher's config/config.go (tagged-JSON config struct
// loaded from a file with env overrides) and internal/api/server.go
// (gin.New + gin.Logger/Recovery + cors.New wiring).
package svc

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the backtestsvc ServerConfig + AuthConfig + RedisConfig
// record, loaded from a JSON file the same way the teacher's config.Load
// does.
type Config struct {
	Server ServerConfig `json:"server"`
	Auth   AuthConfig   `json:"auth"`
	Redis  RedisConfig  `json:"redis"`
}

// ServerConfig holds HTTP bind and CORS settings.
type ServerConfig struct {
	Port           int      `json:"port"`
	Host           string   `json:"host"`
	AllowedOrigins []string `json:"allowed_origins"`
	ReadTimeout    int      `json:"read_timeout_seconds"`
	WriteTimeout   int      `json:"write_timeout_seconds"`
}

// AuthConfig holds JWT and the single static operator credential
// backtestsvc authenticates against (spec scope: one operator, no user
// database — unlike the teacher's multi-tenant auth service).
type AuthConfig struct {
	Enabled              bool          `json:"enabled"`
	JWTSecret            string        `json:"jwt_secret"`
	AccessTokenDuration  time.Duration `json:"access_token_duration"`
	OperatorUser         string        `json:"operator_user"`
	OperatorPasswordHash string        `json:"operator_password_hash"` // bcrypt hash
}

// RedisConfig optionally backs the optimizer result cache.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// Load reads and parses a JSON config file, applying the same defaults the
// teacher's config.Load falls back to when a field is zero.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30
	}
	if cfg.Auth.AccessTokenDuration == 0 {
		cfg.Auth.AccessTokenDuration = time.Hour
	}
}
