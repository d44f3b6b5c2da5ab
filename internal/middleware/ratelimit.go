package middleware

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"todo-tracker/internal/monitoring"
	"todo-tracker/internal/ratelimit"
)

// RateLimit rejects requests from a client IP that exceeded limiter with a
// 429. Limiter errors fail open.
func RateLimit(limiter ratelimit.Limiter, logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter error", "err", err, "client_ip", c.ClientIP())
			c.Next()
			return
		}
		if !allowed {
			monitoring.TrackRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
