package modules

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/bizbridge-auth/internal/metrics"
	"github.com/oksasatya/bizbridge-auth/pkg/response"
)

// DebugModule serves /healthz and, when enabled, Prometheus /metrics.
// Mount it on the root group.
type DebugModule struct {
	Metrics bool
}

func NewDebugModule(metricsEnabled bool) *DebugModule { return &DebugModule{Metrics: metricsEnabled} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "ok", nil)
	})
	if m.Metrics {
		rg.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
}
