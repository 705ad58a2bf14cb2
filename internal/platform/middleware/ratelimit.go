package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig tunes the panel API limiter. Limits apply per attendant
// session, or per client IP before login.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns the panel defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

const (
	bucketIdleTTL = 10 * time.Minute
	sweepEvery    = time.Minute
)

// bucket is a token bucket refilled lazily on access.
type bucket struct {
	allowance float64
	refilled  time.Time
	lastSeen  time.Time
}

// panelLimiter keeps one bucket per caller. Buckets idle longer than
// bucketIdleTTL are pruned so logged-out sessions do not accumulate.
type panelLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	cfg       RateLimitConfig
	lastSweep time.Time
}

func newPanelLimiter(cfg RateLimitConfig) *panelLimiter {
	return &panelLimiter{
		buckets:   make(map[string]*bucket),
		cfg:       cfg,
		lastSweep: time.Now(),
	}
}

// take consumes one token for key. When the bucket is empty it reports
// how many seconds the caller should wait before retrying.
func (l *panelLimiter) take(key string, now time.Time) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepEvery {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{allowance: float64(l.cfg.BurstSize), refilled: now}
		l.buckets[key] = b
	}

	b.allowance += now.Sub(b.refilled).Seconds() * l.cfg.RequestsPerSecond
	if b.allowance > float64(l.cfg.BurstSize) {
		b.allowance = float64(l.cfg.BurstSize)
	}
	b.refilled = now
	b.lastSeen = now

	if b.allowance < 1 {
		retry := 1
		if l.cfg.RequestsPerSecond > 0 {
			retry = int((1-b.allowance)/l.cfg.RequestsPerSecond) + 1
		}
		return false, retry
	}
	b.allowance--
	return true, 0
}

func (l *panelLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > bucketIdleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// limitKey scopes the bucket to the attendant session when present,
// otherwise to the client IP so login and password endpoints are still
// covered.
func limitKey(c echo.Context) string {
	if id, ok := c.Get("attendant_id").(string); ok && id != "" {
		return "attendant:" + id
	}
	return "ip:" + c.RealIP()
}

// RateLimit returns middleware enforcing the panel API rate limit.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	limiter := newPanelLimiter(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retryAfter := limiter.take(limitKey(c), time.Now())
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
