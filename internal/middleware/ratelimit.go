package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/case-approval-tracker/internal/config"
)

// Bucket scopes.  Each scope keeps its own buckets under the same key
// strategy.
const (
    ScopeAPI   = "api"
    ScopeStats = "stats"
)

// tokenBucketScript refills the bucket at KEYS[1] for the time elapsed since
// its last refill and takes one token when available.  It returns
// {allowed, tokens left, ms until the next refill}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end
if tokens > capacity then
    tokens = capacity
end

local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
if intervals > 0 then
    tokens = math.min(capacity, tokens + intervals * refill_tokens)
    last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return {allowed, tokens, retry_ms}
`)

// Decision is the outcome of taking a token from a bucket.
type Decision struct {
    Allowed    bool
    Limit      int
    Remaining  int64
    RetryAfter time.Duration
}

// RateLimiter hands out tokens from buckets kept in Redis.  The bucket
// update is a single script so every server instance sees the same count.
type RateLimiter struct {
    cfg config.RateLimitConfig
    rdb redis.Scripter
    now func() time.Time
}

// NewRateLimiter returns a limiter backed by rdb.  A nil limiter is valid
// and lets every request through, as does a disabled configuration or a
// nil client.
func NewRateLimiter(cfg config.RateLimitConfig, rdb redis.Scripter) *RateLimiter {
    if !cfg.Enabled || rdb == nil {
        return nil
    }
    return &RateLimiter{cfg: cfg, rdb: rdb, now: time.Now}
}

// WithClock replaces the clock used to refill buckets.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
    l.now = now
    return l
}

// Take removes one token from the bucket at key, creating it full with
// capacity tokens when it does not exist yet.
func (l *RateLimiter) Take(ctx context.Context, key string, capacity int) (Decision, error) {
    args := []any{
        l.now().UnixMilli(),
        capacity,
        l.cfg.RefillTokens,
        l.cfg.RefillInterval.Milliseconds(),
        int64(l.cfg.TTL / time.Second),
    }
    vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{key}, args...).Int64Slice()
    if err != nil {
        return Decision{}, err
    }
    if len(vals) != 3 {
        return Decision{}, fmt.Errorf("ratelimit: unexpected script result %v", vals)
    }
    return Decision{
        Allowed:    vals[0] == 1,
        Limit:      capacity,
        Remaining:  vals[1],
        RetryAfter: time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

// Middleware limits requests in scope to capacity tokens per key.  A
// capacity of zero or less disables limiting for the scope.  Redis
// failures let the request through.
func (l *RateLimiter) Middleware(scope string, capacity int) echo.MiddlewareFunc {
    if l == nil || capacity <= 0 {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(l.cfg, scope, c)
            d, err := l.Take(c.Request().Context(), key, capacity)
            if err != nil {
                if l.cfg.Debug {
                    c.Logger().Warnf("[ratelimit] redis error for key=%s: %v", key, err)
                }
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
            if l.cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if d.Allowed {
                return next(c)
            }

            secs := int(math.Ceil(d.RetryAfter.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            if l.cfg.Debug {
                c.Logger().Infof("[ratelimit] block key=%s retry=%s", key, d.RetryAfter)
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

// API limits the user and test endpoints.
func (l *RateLimiter) API() echo.MiddlewareFunc {
    if l == nil {
        return l.Middleware(ScopeAPI, 0)
    }
    return l.Middleware(ScopeAPI, l.cfg.Capacity)
}

// Stats limits the aggregation endpoints.
func (l *RateLimiter) Stats() echo.MiddlewareFunc {
    if l == nil {
        return l.Middleware(ScopeStats, 0)
    }
    return l.Middleware(ScopeStats, l.cfg.StatsCapacity)
}

// buildRateKey names the bucket of a request.  Routes are keyed by their
// pattern so /tests/1 and /tests/2 share a bucket.
func buildRateKey(cfg config.RateLimitConfig, scope string, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix, scope}
    switch cfg.KeyStrategy {
    case config.KeyByIP:
        parts = append(parts, "ip", ip)
    case config.KeyByRoute:
        parts = append(parts, "route", route)
    default:
        parts = append(parts, "ip", ip, "route", route)
    }
    return strings.Join(parts, ":")
}
