package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"card-validator/pkg/metrics"
)

// RequestLogger logs every request and records it in the HTTP metrics.
// Routes are labelled by their pattern so view IDs don't explode cardinality.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordHTTPRequest(c.Request.Method, path, status, elapsed)

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     path,
			"status":   status,
			"duration": elapsed.String(),
		})
		if status >= 500 {
			entry.Error("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}
