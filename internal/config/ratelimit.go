package config

import (
	"strings"
	"time"
)

// Bucket key strategies.
const (
	KeyUser    = "user"     // authenticated user id, client IP for guests
	KeyIP      = "ip"       // client IP
	KeyIPRoute = "ip_route" // client IP and matched route
)

// RateLimitConfig sizes the Redis token buckets. A bucket holds at most
// Burst tokens and earns one back every Every. Login and registration use
// a bucket of AuthBurst tokens keyed by IP and route.
type RateLimitConfig struct {
	Enabled   bool
	Burst     int
	Every     time.Duration
	AuthBurst int
	Idle      time.Duration // buckets untouched this long are dropped
	Key       string
	Prefix    string
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:   envBool("RATE_LIMIT_ENABLED", true),
		Burst:     envInt("RATE_LIMIT_BURST", 60),
		Every:     envDur("RATE_LIMIT_REFILL_EVERY", time.Second),
		AuthBurst: envInt("RATE_LIMIT_AUTH_BURST", 10),
		Idle:      envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Key:       strings.ToLower(envStr("RATE_LIMIT_KEY", KeyUser)),
		Prefix:    envStr("RATE_LIMIT_PREFIX", "hostel:rl"),
	}
	c.Burst = max(c.Burst, 1)
	if c.AuthBurst < 1 || c.AuthBurst > c.Burst {
		c.AuthBurst = c.Burst
	}
	// An idle bucket must survive until it would be full again.
	c.Idle = max(c.Idle, time.Duration(c.Burst)*c.Every)
	return c
}
