package router

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewBackendProxy 创建转发到后端的反向代理
// 后端不可达时返回 502
func NewBackendProxy(target *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		zap.L().Error("backend proxy failed",
			zap.String("target", target.String()),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}
	return proxy
}

// registerProxyRoutes /api 与 /public 转发给后端；配置了本地静态目录时 /public 走本地
func (rt *Router) registerProxyRoutes(r *gin.Engine) {
	if rt.backend != nil {
		r.Any("/api/*path", gin.WrapH(rt.backend))
	}
	switch {
	case rt.staticPath != "":
		r.Static("/public", rt.staticPath)
	case rt.backend != nil:
		r.Any("/public/*path", gin.WrapH(rt.backend))
	}
}
