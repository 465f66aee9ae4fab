// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"net/http"

	"contact_book/internal/handler"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器，持有 Handler 聚合与可选的代理、指标处理器
type Router struct {
	handlers   *handler.Handlers
	backend    http.Handler // /api 与 /public 的反向代理，nil 时不注册
	staticPath string       // 非空时 /public 由本地目录提供
	metrics    http.Handler // /metrics，nil 时不注册
}

// Option 可选配置
type Option func(*Router)

// WithBackendProxy 把 /api 与 /public 转发给后端
func WithBackendProxy(proxy http.Handler) Option {
	return func(rt *Router) { rt.backend = proxy }
}

// WithStaticPath 由本地目录提供 /public 静态资源
func WithStaticPath(path string) Option {
	return func(rt *Router) { rt.staticPath = path }
}

// WithMetrics 注册 /metrics
func WithMetrics(h http.Handler) Option {
	return func(rt *Router) { rt.metrics = h }
}

// NewRouter 构造函数
func NewRouter(handlers *handler.Handlers, opts ...Option) *Router {
	rt := &Router{handlers: handlers}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// RegisterRoutes 注册所有路由
// 在 https_server.Init() 中调用
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	rt.registerSystemRoutes(r)  // 健康检查、指标
	rt.registerProxyRoutes(r)   // 后端 API 与公共资源
	rt.registerContactRoutes(r) // 通讯录页面
	r.NoRoute(handler.NotFound) // 兜底 not-found 页
}
