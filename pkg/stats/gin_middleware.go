package stats

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware records request metrics for every handled route.
// Unmatched routes are grouped under "unmatched" to keep label cardinality bounded.
func (mr *MetricsRecorder) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		mr.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), int64(c.Writer.Size()))
	}
}
