// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/insighta/internal/config"
	"github.com/carterperez-dev/insighta/internal/core"
)

type RateLimitConfig struct {
	Limit redis_rate.Limit
	// KeyPrefix namespaces counters so several limiters can share a client.
	KeyPrefix string
	KeyFunc   func(*http.Request) string
	FailOpen  bool
	Logger    *slog.Logger
}

// RateLimiter counts requests in Redis and falls back to an in-process
// token bucket per key when Redis errors or no client is configured.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	config   RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	rl := &RateLimiter{
		fallback: newLocalLimiter(),
		config:   cfg,
	}
	if rdb != nil {
		rl.limiter = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.Limit.IsZero() {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.config.KeyPrefix + ":" + rl.config.KeyFunc(r)
		res, err := rl.allow(r.Context(), key)
		if err != nil {
			if rl.config.FailOpen {
				rl.config.Logger.WarnContext(r.Context(),
					"rate limiter error, failing open",
					"error", err,
					"key", key,
				)
				next.ServeHTTP(w, r)
				return
			}
			core.JSONError(w, core.NewAppError(
				err,
				"rate limiter unavailable",
				http.StatusServiceUnavailable,
				"SERVICE_UNAVAILABLE",
			))
			return
		}

		setRateLimitHeaders(w, res, rl.config.Limit)

		if res.Allowed == 0 {
			writeRateLimitExceeded(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(
	ctx context.Context,
	key string,
) (*redis_rate.Result, error) {
	if rl.limiter == nil {
		return rl.fallback.allow(key, rl.config.Limit)
	}

	res, err := rl.limiter.Allow(ctx, key, rl.config.Limit)
	if err != nil {
		rl.config.Logger.DebugContext(ctx, "redis rate limit unavailable, using local limiter",
			"error", err,
		)
		return rl.fallback.allow(key, rl.config.Limit)
	}
	return res, nil
}

// KeyByIP keys on the client address. Only the last X-Forwarded-For hop is
// trusted since earlier entries are client supplied.
func KeyByIP(r *http.Request) string {
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LimitFromConfig converts a configured window into a redis_rate limit. A
// non-positive request count disables limiting.
func LimitFromConfig(cfg config.RateLimitConfig) redis_rate.Limit {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return redis_rate.Limit{}
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Requests
	}

	return redis_rate.Limit{
		Rate:   cfg.Requests,
		Burst:  burst,
		Period: cfg.Window,
	}
}

func setRateLimitHeaders(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(res.ResetAfter).Unix(), 10))

	windowSecs := int(limit.Period.Seconds())
	h.Set("RateLimit-Policy", fmt.Sprintf(`%d;w=%d`, limit.Rate, windowSecs))
	h.Set(
		"RateLimit",
		fmt.Sprintf(`%d;t=%d`, res.Remaining, int(res.ResetAfter.Seconds())),
	)
}

func writeRateLimitExceeded(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := max(int(res.RetryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSONError(w, core.NewAppError(
		nil,
		fmt.Sprintf("Too many requests. Retry after %d seconds.", retryAfter),
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	))
}

// localLimiter is the per-process fallback. Idle buckets are swept lazily
// on access instead of by a background goroutine.
type localLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	tokens *rate.Limiter
	seen   time.Time
}

const bucketIdleTTL = 10 * time.Minute

func newLocalLimiter() *localLimiter {
	return &localLimiter{buckets: make(map[string]*bucket), lastSweep: time.Now()}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("local limiter: invalid limit %s", limit)
	}

	now := time.Now()
	interval := limit.Period / time.Duration(limit.Rate)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > bucketIdleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > bucketIdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(rate.Every(interval), limit.Burst)}
		l.buckets[key] = b
	}
	b.seen = now

	res := &redis_rate.Result{Limit: limit, RetryAfter: -1, ResetAfter: interval}
	if b.tokens.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	res.Remaining = max(int(b.tokens.TokensAt(now)), 0)

	return res, nil
}
