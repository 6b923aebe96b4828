package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-booking-api/pkg/logging"
)

// RedisRateLimiter is a fixed-window per-IP limiter backed by Redis, for
// deployments running multiple API replicas behind one address pool.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	logger *logging.Logger
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// NewRedisRateLimiter creates a limiter allowing limit requests per window
// per client IP.
func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration, logger *logging.Logger) *RedisRateLimiter {
	if rdb == nil {
		return nil
	}
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, logger: logger}
}

// Middleware rejects requests over the limit with 429. Redis failures fail
// open: slot queries are read-only and the booking transaction has its own
// conflict check, so availability beats strictness here.
func (rl *RedisRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "rl:booking:" + clientIP(r)
			count, err := rl.incr(r.Context(), key)
			if err != nil {
				rl.logger.Warn("redis rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count > int64(rl.limit) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RedisRateLimiter) incr(ctx context.Context, key string) (int64, error) {
	res, err := fixedWindowScript.Run(ctx, rl.rdb, []string{key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}
