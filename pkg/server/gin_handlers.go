package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/earthbuild/hello-earthly/pkg/greeting"
	"github.com/earthbuild/hello-earthly/pkg/stats"
)

// GinHandler handles the greeting and health routes
type GinHandler struct {
	greeter *greeting.Greeter
	metrics *stats.MetricsRecorder
}

// NewGinHandler creates a new Gin handler
func NewGinHandler(greeter *greeting.Greeter, metrics *stats.MetricsRecorder) *GinHandler {
	return &GinHandler{
		greeter: greeter,
		metrics: metrics,
	}
}

// HelloHandler greets the "who" query parameter, or the default name
func (h *GinHandler) HelloHandler(c *gin.Context) {
	who := c.Query("who")
	if h.metrics != nil {
		h.metrics.RecordGreeting(h.greeter.IsDefault(who))
	}
	c.String(http.StatusOK, h.greeter.Greet(who))
}

// HealthHandler handles health and readiness checks
func (h *GinHandler) HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
