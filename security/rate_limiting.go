package security

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/status"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{redis: redisClient, limit: int64(limit), window: window}
}

// ScanRateLimit caps scan requests per scanner within a fixed window.
// Counting failures let the request through.
func (r *RateLimiter) ScanRateLimit() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if r.redis == nil || r.limit <= 0 {
			return e.Next()
		}

		ctx := e.Request.Context()
		key := fmt.Sprintf("ratelimit:scan:%s", identity(e))

		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			slog.Warn("Scan rate limit unavailable", "key", key, "error", err)
			return e.Next()
		}
		if count == 1 {
			if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
				slog.Warn("Failed to set scan rate limit window", "key", key, "error", err)
			}
		}

		if count > r.limit {
			slog.Info("Scan rate limit exceeded", "key", key, "count", count)
			e.Response.Header().Set("Retry-After", strconv.Itoa(int(r.window.Seconds())))
			return reject(e, status.ErrRateLimited, "Rate limit exceeded. Please try again later.")
		}
		return e.Next()
	}
}

// AntiBotMiddleware turns away clients that announce themselves as crawlers.
func (r *RateLimiter) AntiBotMiddleware() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if isSuspiciousUserAgent(e.Request.UserAgent()) {
			slog.Info("Rejected suspicious user agent", "user_agent", e.Request.UserAgent())
			return reject(e, status.ErrForbidden, "Access denied")
		}
		return e.Next()
	}
}

func isSuspiciousUserAgent(ua string) bool {
	ua = strings.ToLower(ua)
	for _, pattern := range []string{"bot", "crawler", "spider", "scraper"} {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}

func identity(e *core.RequestEvent) string {
	if e.Auth != nil {
		return "user:" + e.Auth.Id
	}
	host, _, err := net.SplitHostPort(e.Request.RemoteAddr)
	if err != nil {
		host = e.Request.RemoteAddr
	}
	return "ip:" + host
}

func reject(e *core.RequestEvent, err error, message string) error {
	return e.JSON(status.HTTPStatus(err), map[string]any{
		"ok":      false,
		"error":   status.Code(err),
		"message": message,
	})
}
