package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics observes every request by method, route template and status.
// Unrouted paths share a single label so probes for random URLs cannot grow
// the series count.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
