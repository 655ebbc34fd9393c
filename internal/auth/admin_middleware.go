package auth

import (
	"net/http"

	"moltspace/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware gates admin routes behind the shared admin secret in the
// X-Admin-Secret header. Admin operations are unavailable (503) until the
// secret is configured; there is no default.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.AppConfig == nil || config.AppConfig.AdminSecret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Admin operations not configured"})
			return
		}

		if c.GetHeader("X-Admin-Secret") != config.AppConfig.AdminSecret {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid admin secret"})
			return
		}

		c.Next()
	}
}
