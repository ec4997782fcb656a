// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/insighta/internal/config"
)

// Redis backs the token revocation set and the rate limiter counters.
type Redis struct {
	Client *redis.Client
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	r := &Redis{Client: redis.NewClient(opts)}

	if err := r.Ping(ctx); err != nil {
		_ = r.Close() //nolint:errcheck // cleanup on connection failure
		return nil, err
	}

	return r, nil
}

func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	return nil
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
	// RevokedTokens is the number of keys under the revocation prefix.
	RevokedTokens int64 `json:"revoked_tokens"`
}

// RevokedKeyPattern matches the keys written by the auth revocation set.
const RevokedKeyPattern = "revoked:*"

func (r *Redis) Stats(ctx context.Context) (any, error) {
	pool := r.Client.PoolStats()
	stats := &RedisPoolStats{
		Hits:       pool.Hits,
		Misses:     pool.Misses,
		Timeouts:   pool.Timeouts,
		TotalConns: pool.TotalConns,
		IdleConns:  pool.IdleConns,
		StaleConns: pool.StaleConns,
	}

	iter := r.Client.Scan(ctx, 0, RevokedKeyPattern, 500).Iterator()
	for iter.Next(ctx) {
		stats.RevokedTokens++
	}
	if err := iter.Err(); err != nil {
		return stats, fmt.Errorf("scan revoked tokens: %w", err)
	}

	return stats, nil
}
