package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carnival/pkg/metrics"
)

// MetricsMiddleware records HTTP metrics for each request, labelled by the
// route template rather than the raw path.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.IncInFlight()
		defer m.DecInFlight()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
