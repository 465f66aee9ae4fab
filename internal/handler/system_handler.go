package handler

import (
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler 健康检查
type SystemHandler struct {
	appName string
	started time.Time
}

// NewSystemHandler 构造函数
func NewSystemHandler(appName string) *SystemHandler {
	return &SystemHandler{appName: appName, started: time.Now()}
}

// Healthz 存活检查
// GET /healthz
func (h *SystemHandler) Healthz(c *gin.Context) {
	HandleSuccess(c, gin.H{
		"app":    h.appName,
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
