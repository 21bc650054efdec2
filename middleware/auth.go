package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/dailygist/common"
)

// BearerAuth rejects requests whose bearer token does not match secret.
// With an empty secret every request fails with 500.
func BearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Error(common.Errf(http.StatusInternalServerError, "CRON_SECRET not configured"))
			c.Abort()
			return
		}

		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.Error(common.Errf(http.StatusUnauthorized, "missing bearer token"))
			c.Abort()
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.Error(common.Errf(http.StatusUnauthorized, "invalid token"))
			c.Abort()
			return
		}

		c.Next()
	}
}
