package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements sliding window rate limiting using Redis.
// It is shared across processes; the in-process quota tracker is not.
// ⭐ SSOT: 프로세스 간 공유 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // provider name (e.g., "nasa", "noaa")
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// slidingWindow trims the window, counts, and admits atomically
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	-- Remove old entries outside the window
	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, now)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	else
		return {0, 0}
	end
`)

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed under the rate limit
// Returns (allowed, remaining, error)
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		// If Redis is disabled, allow all requests
		return true, cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()
	windowStart := now - cfg.Window.Milliseconds()

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now,
		windowStart,
		cfg.Limit,
		cfg.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	return result[0] == 1, int(result[1]), nil
}

// Wait blocks until a request is allowed or context is cancelled
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Predefined rate limit configs for external providers
var (
	// api.nasa.gov: 시간당 1000회 (개인 키 기준)
	NASARateLimit = RateLimitConfig{
		Key:    "nasa",
		Limit:  1000,
		Window: time.Hour,
	}

	// NOAA CDO: 초당 5회
	NOAARateLimit = RateLimitConfig{
		Key:    "noaa",
		Limit:  5,
		Window: time.Second,
	}

	// OSM API: 초당 1회 (보수적)
	OSMRateLimit = RateLimitConfig{
		Key:    "openstreetmap",
		Limit:  1,
		Window: time.Second,
	}

	// Sentinel Hub: 분당 300회 (trial tier)
	SentinelRateLimit = RateLimitConfig{
		Key:    "sentinel_hub",
		Limit:  300,
		Window: time.Minute,
	}
)

// RateLimitFor returns the shared limit for a provider, if one is defined
func RateLimitFor(provider string) (RateLimitConfig, bool) {
	switch provider {
	case NASARateLimit.Key:
		return NASARateLimit, true
	case NOAARateLimit.Key:
		return NOAARateLimit, true
	case OSMRateLimit.Key:
		return OSMRateLimit, true
	case SentinelRateLimit.Key:
		return SentinelRateLimit, true
	}
	return RateLimitConfig{}, false
}
