package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLog logs one structured entry per request: method, path, status,
// latency and the file/chunk identifiers when present, so an operator can
// correlate a slow or failing request with a specific upload.
func RequestLog(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if fileID := c.GetHeader("X-File-Id"); fileID != "" {
			fields["file_id"] = fileID
		}
		if chunkIdx := c.GetHeader("X-Chunk-Index"); chunkIdx != "" {
			fields["chunk_index"] = chunkIdx
		}

		entry := log.WithFields(fields)
		if c.Writer.Status() >= 500 {
			entry.Error("request failed")
		} else {
			entry.Info("request handled")
		}
	}
}
