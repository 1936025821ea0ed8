package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute attaches GET /healthz — a supplemented, decorative
// liveness endpoint outside the authenticated /api group. The edge
// router's active health check polls each backend's root URL, not this
// path.
func RegisterHealthRoute(rg gin.IRouter) {
	rg.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
