package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ascendhq/ascend/pkg/metrics"
	"github.com/ascendhq/ascend/pkg/response"
)

// RateKeyFunc derives the counter key for a request. An empty key skips
// limiting for that request.
type RateKeyFunc func(c *gin.Context) string

// KeyByClientIP buckets requests per client IP and route.
func KeyByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP() + "|" + c.FullPath()
}

// KeyByUser buckets requests per authenticated user. Unauthenticated
// requests fall back to the client IP so the limit still applies.
func KeyByUser(c *gin.Context) string {
	if user, ok := CurrentUser(c); ok {
		return "user:" + user.ID
	}
	return "ip:" + c.ClientIP()
}

// RateLimit enforces a fixed-window limit via the provided store. Rejected
// requests receive a 429 whose body carries the window reset time.
func RateLimit(store RateStore, scope string, maxRequests int, window time.Duration, keyFn RateKeyFunc) gin.HandlerFunc {
	if keyFn == nil {
		keyFn = KeyByClientIP
	}

	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}

		count, ttl, err := store.Increment(c.Request.Context(), scope+"|"+key, window)
		if err != nil {
			// A broken limiter must not take the API down with it.
			c.Next()
			return
		}

		remaining := maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		resetAt := time.Now().Add(ttl)

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > maxRequests {
			metrics.RateLimited.WithLabelValues(scope).Inc()
			response.RateLimited(c, resetAt)
			c.Abort()
			return
		}

		c.Next()
	}
}
