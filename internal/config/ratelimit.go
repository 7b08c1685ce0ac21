package config

import (
    "log"
    "strings"
    "time"
)

// Rate-limit key strategies: which request attributes share a bucket.
const (
    KeyByIP      = "ip"
    KeyByRoute   = "route"
    KeyByIPRoute = "ip_route"
)

// RateLimitConfig drives the optional Redis token bucket in front of the
// API.  The limiter is off unless RATE_LIMIT_ENABLED is set.
//
// User and test endpoints draw from buckets of Capacity tokens.  The
// /tests/count aggregations polled by the dashboard draw from separate
// buckets of StatsCapacity tokens and are not limited while it is zero.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    StatsCapacity  int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", false),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", envInt("RATE_LIMIT_BURST", 60)),
        StatsCapacity:  envInt("RATE_LIMIT_STATS_CAPACITY", 0),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", KeyByIPRoute)),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    switch cfg.KeyStrategy {
    case KeyByIP, KeyByRoute, KeyByIPRoute:
    default:
        log.Printf("config: unknown RATE_LIMIT_KEY_STRATEGY %q, using %s", cfg.KeyStrategy, KeyByIPRoute)
        cfg.KeyStrategy = KeyByIPRoute
    }
    cfg.Capacity = max(cfg.Capacity, 1)
    cfg.StatsCapacity = max(cfg.StatsCapacity, 0)
    cfg.RefillTokens = max(cfg.RefillTokens, 1)
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    // An idle bucket has to outlive a few refills or it resets to full.
    cfg.TTL = max(cfg.TTL, 5*cfg.RefillInterval)
    return cfg
}
