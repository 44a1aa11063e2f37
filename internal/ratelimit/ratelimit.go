// Package ratelimit implements a Redis-backed fixed-window request limiter.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// incrExpireScript atomically bumps the window counter, starts the window on
// the first hit and returns {count, remaining window in ms}.
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// KeyFunc builds a rate-limit key from the request.
type KeyFunc func(r *http.Request) string

// KeyByIP limits by client IP. Run it behind middleware.RealIP to honour proxy headers.
func KeyByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "rl:ip:" + host
}

// Result describes the state of a window after one hit.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// Limiter allows at most max hits per key per window.
// A nil *Limiter allows everything.
type Limiter struct {
	rdb    redis.Scripter
	max    int
	window time.Duration
}

// New creates a Limiter. It returns nil, a pass-through limiter, when rdb is
// nil or the budget is not positive.
func New(rdb redis.Scripter, max int, window time.Duration) *Limiter {
	if rdb == nil || max <= 0 || window <= 0 {
		return nil
	}
	return &Limiter{rdb: rdb, max: max, window: window}
}

// Allow records one hit for key.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	if l == nil {
		return Result{Allowed: true}, nil
	}

	raw, err := incrExpireScript.Run(ctx, l.rdb, []string{key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(raw) != 2 {
		return Result{}, fmt.Errorf("rate limit %s: unexpected script reply %v", key, raw)
	}

	count, ttl := raw[0], raw[1]
	res := Result{
		Allowed:   count <= int64(l.max),
		Limit:     l.max,
		Remaining: l.max - int(count),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if ttl > 0 {
		res.Reset = time.Duration(ttl) * time.Millisecond
	}
	return res, nil
}

// Middleware enforces the limit per key. OPTIONS requests are never counted
// and Redis errors let the request through.
func (l *Limiter) Middleware(keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil || keyFn == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFn(r)
			res, err := l.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			resetSec := int((res.Reset + time.Second - 1) / time.Second)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))

			if !res.Allowed {
				if resetSec > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(resetSec))
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				if err := json.NewEncoder(w).Encode(map[string]string{"error": "Rate limit exceeded"}); err != nil {
					log.Error().Err(err).Msg("Failed to encode response")
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
