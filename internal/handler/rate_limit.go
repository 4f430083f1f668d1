package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/visitka/visitka-backend/internal/service"
	"github.com/visitka/visitka-backend/pkg/observability"
	"go.uber.org/zap"
)

// RateLimitRule limits requests sharing a scope and key
type RateLimitRule struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// RateLimitMiddleware rejects requests over the rule with 429 and a Retry-After header.
// Requests are counted under "<scope>:<key>".
func RateLimitMiddleware(
	limiter service.RateLimiter,
	rule RateLimitRule,
	keyFunc func(*gin.Context) string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rule.Scope + ":" + keyFunc(c)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))

		allowed, retryAfter := limiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if !allowed {
			metrics.RecordRateLimited(c.Request.Context(), rule.Scope)
			logger.Info("rate limit exceeded",
				zap.String("scope", rule.Scope),
				zap.String("ip", c.ClientIP()),
				zap.Int("retry_after", retryAfter),
			)
			respondError(c, logger, service.RateLimitedError(retryAfter))
			return
		}

		c.Next()
	}
}

// IPBasedKey keys requests by client IP. Forwarded headers are honored only from trusted proxies.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}
