package optcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/kosheo/backtestcore/internal/optimize"
)

// RedisStore is a Redis-backed Store with the teacher's circuit-breaker
// degradation: after maxFailures consecutive errors it stops calling out to
// Redis until recoveryBackoff has elapsed, so a flaky or down Redis never
// blocks optimizer runs — every call simply falls through as a miss.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	mu       sync.Mutex
	healthy  bool
	failures int

	maxFailures     int
	recoveryBackoff time.Duration
	downSince       time.Time
}

// NewRedisStore wraps an existing client. ttl<=0 disables expiry.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:          client,
		prefix:          prefix,
		ttl:             ttl,
		healthy:         true,
		maxFailures:     3,
		recoveryBackoff: 5 * time.Second,
	}
}

func (r *RedisStore) available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.healthy {
		return true
	}
	if time.Since(r.downSince) >= r.recoveryBackoff {
		r.healthy = true
		r.failures = 0
		return true
	}
	return false
}

func (r *RedisStore) recordFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
	if r.failures >= r.maxFailures && r.healthy {
		r.healthy = false
		r.downSince = time.Now()
		log.Warn().Err(err).Int("failures", r.failures).Msg("optcache redis circuit open")
	}
}

func (r *RedisStore) recordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.healthy = true
	r.failures = 0
}

func (r *RedisStore) Get(ctx context.Context, key string) (optimize.Result, bool) {
	if !r.available() {
		return optimize.Result{}, false
	}

	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		r.recordSuccess()
		return optimize.Result{}, false
	}
	if err != nil {
		r.recordFailure(err)
		return optimize.Result{}, false
	}

	var res optimize.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		log.Warn().Err(err).Msg("optcache: corrupt cached result, treating as miss")
		return optimize.Result{}, false
	}
	r.recordSuccess()
	return res, true
}

func (r *RedisStore) Set(ctx context.Context, key string, value optimize.Result) {
	if !r.available() {
		return
	}
	buf, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Msg("optcache: failed to marshal result for caching")
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, buf, r.ttl).Err(); err != nil {
		r.recordFailure(err)
		return
	}
	r.recordSuccess()
}
