package middleware

import (
	"strconv"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latencies per route. Websocket
// upgrades are counted but their lifetime is not a latency.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		upgrade := c.GetHeader("Upgrade") == "websocket"
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		if !upgrade {
			metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		}
	}
}
