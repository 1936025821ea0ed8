package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerAuth checks the Authorization header against a fixed in-memory
// allowlist of tokens, loaded from configuration at startup. There is no issuer,
// no expiry, no claims to parse — a request either carries one of the
// configured tokens or it doesn't. Token provisioning itself is someone
// else's problem; this middleware only validates membership.
func BearerAuth(allowedTokens []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedTokens))
	for _, t := range allowedTokens {
		if t != "" {
			allowed[t] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if _, ok := allowed[token]; !ok || token == "" {
			unauthorized(c)
			return
		}

		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"status": "error",
		"error":  "Unauthorized",
		"code":   http.StatusUnauthorized,
	})
	c.Abort()
}
