package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs basic request information along with the request_id.
// Scrapes of /metrics and health probes are logged at debug level.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		entry := GetRequestLogger(c).WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    SanitizePath(path),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		if path == "/metrics" || strings.HasSuffix(path, "/health") {
			entry.Debug("handled request")
			return
		}
		entry.Info("handled request")
	}
}
