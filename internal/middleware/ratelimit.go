package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit applies a per-client-IP token-bucket limiter. Each new IP
// gets its own limiter the first time it's seen; limiters are never
// evicted, which is an acceptable tradeoff for a fleet behind a fixed
// set of known replicas rather than a public-internet edge.
func RateLimit(perSecond rate.Limit, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	getLimiter := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(perSecond, burst)
			limiters[key] = l
		}
		return l
	}

	return func(c *gin.Context) {
		limiter := getLimiter(c.ClientIP())
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status": "error",
				"error":  "rate limit exceeded",
				"code":   http.StatusTooManyRequests,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
