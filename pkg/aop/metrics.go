package aop

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"flashcat.cloud/cpudash/pkg/metrics"
)

// Metrics records request count and latency per matched route. Register it
// ahead of Recovery so recovered panics are counted with their 500 status.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
			metrics.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		}()
		c.Next()
	}
}
