package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-residence/internal/config"
)

// takeToken credits the tokens earned since the last refill, then takes
// one. It returns {allowed, remaining, wait_ms}.
var takeToken = redis.NewScript(`
local now   = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local every = tonumber(ARGV[3])
local idle  = tonumber(ARGV[4])

local b = redis.call('HMGET', KEYS[1], 'tokens', 'at')
local tokens, at = tonumber(b[1]), tonumber(b[2])
if tokens == nil or at == nil then
  tokens, at = burst, now
end

local earned = math.floor((now - at) / every)
if earned > 0 then
  tokens = math.min(burst, tokens + earned)
  at = at + earned * every
end

local allowed, wait = 0, 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = every - (now - at)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'at', at)
redis.call('PEXPIRE', KEYS[1], idle)
return {allowed, tokens, wait}
`)

type verdict struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

type bucket struct {
	rdb   *redis.Client
	burst int
	every int64 // ms
	idle  int64 // ms
}

func (b bucket) take(ctx context.Context, key string, now time.Time) (verdict, error) {
	res, err := takeToken.Run(ctx, b.rdb, []string{key}, now.UnixMilli(), b.burst, b.every, b.idle).Int64Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(res) != 3 {
		return verdict{}, fmt.Errorf("token bucket: unexpected reply %v", res)
	}
	return verdict{allowed: res[0] == 1, remaining: res[1], wait: time.Duration(res[2]) * time.Millisecond}, nil
}

// AuthBucket derives the login and registration bucket from cfg.
func AuthBucket(cfg config.RateLimitConfig) config.RateLimitConfig {
	cfg.Burst = cfg.AuthBurst
	cfg.Prefix += ":auth"
	cfg.Key = config.KeyIPRoute
	return cfg
}

// NewTokenBucket limits requests with a token bucket kept in Redis. The
// refill and the take run atomically in one script. When Redis is down the
// request is admitted and a warning is logged.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	if log == nil {
		log = zap.NewNop()
	}
	b := bucket{
		rdb:   rdb,
		burst: max(cfg.Burst, 1),
		every: max(cfg.Every.Milliseconds(), 1),
		idle:  max(cfg.Idle.Milliseconds(), 1000),
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := bucketKey(cfg, c)
			v, err := b.take(c.Request().Context(), key, time.Now())
			if err != nil {
				log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(b.burst))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if !v.allowed {
				secs := int(math.Ceil(v.wait.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"code":        "too_many_requests",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func bucketKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	switch cfg.Key {
	case config.KeyIP:
		return cfg.Prefix + ":ip:" + ip
	case config.KeyIPRoute:
		return cfg.Prefix + ":ip:" + ip + ":" + c.Request().Method + " " + c.Path()
	}
	if a, ok := ActorFrom(c); ok {
		return cfg.Prefix + ":user:" + strconv.FormatUint(a.ID, 10)
	}
	return cfg.Prefix + ":ip:" + ip
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
