// Package ratelimit implements fixed-window per-minute request counting
// for the public intake API. Each API key gets its own window; the
// counter backend is pluggable so single-node deployments can run
// without Redis.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/connectsaude/connect/internal/platform/auth"
)

// WindowSeconds is the length of a rate limit window.
const WindowSeconds = 60

// Limiter counts requests per key within the current minute window.
type Limiter interface {
	// Allow records one request for the key and reports whether it fits
	// within limit requests per minute. The returned count is the number
	// of requests seen in the current window including this one.
	Allow(ctx context.Context, key string, limit int) (allowed bool, count int, err error)
}

// Middleware returns an Echo middleware that enforces per-minute limits
// on intake requests. It must run after auth.RequireAPIKey so the key is
// available on the context. Keys with RateLimit == 0 use defaultLimit.
//
// When the backend fails the request is allowed through: intake
// availability wins over strict enforcement.
func Middleware(limiter Limiter, defaultLimit int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := auth.KeyFromContext(c)
			if key == nil {
				return next(c)
			}

			limit := key.RateLimit
			if limit <= 0 {
				limit = defaultLimit
			}

			allowed, count, err := limiter.Allow(c.Request().Context(), key.ID, limit)
			if err != nil {
				return next(c)
			}

			remaining := limit - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				c.Response().Header().Set("Retry-After", strconv.Itoa(WindowSeconds))
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
			}

			return next(c)
		}
	}
}
