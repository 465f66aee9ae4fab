package router

import (
	"github.com/gin-gonic/gin"
)

// registerSystemRoutes 健康检查与指标
func (rt *Router) registerSystemRoutes(r *gin.Engine) {
	r.GET("/healthz", rt.handlers.System.Healthz)
	if rt.metrics != nil {
		r.GET("/metrics", gin.WrapH(rt.metrics))
	}
}
