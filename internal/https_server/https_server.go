// Package https_server 提供 HTTP/HTTPS 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件、模板、代理和路由
package https_server

import (
	"fmt"
	"net/url"

	"contact_book/internal/config"                    // 配置管理
	"contact_book/internal/handler"                   // Handler 聚合对象
	"contact_book/internal/infrastructure/logger"     // 自定义日志中间件
	"contact_book/internal/infrastructure/metrics"    // Prometheus 指标
	"contact_book/internal/infrastructure/middleware" // 请求 ID、安全响应头
	"contact_book/internal/router"                    // 路由注册
	"contact_book/internal/view"                      // 页面模板
	"contact_book/pkg/constants"

	"github.com/gin-contrib/cors" // CORS 跨域中间件
	"github.com/gin-gonic/gin"    // Gin Web 框架
)

// Init 初始化 HTTP/HTTPS 服务器并返回 Gin 引擎实例
// handlers: 通过依赖注入传入的 handler 聚合对象；recorder 可为 nil
// 配置顺序：
//  1. 创建 Gin 引擎（空白，不含默认中间件）
//  2. 注册请求 ID、日志、恢复、指标、安全头中间件
//  3. 配置 CORS 跨域规则
//  4. 加载页面模板
//  5. 注册路由（含 /api 与 /public 的后端代理）
func Init(conf *config.Config, handlers *handler.Handlers, recorder *metrics.Recorder) (*gin.Engine, error) {
	if conf.MainConfig.Mode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	// 创建空白 Gin 引擎（不使用 gin.Default() 以便完全控制中间件）
	engine := gin.New()
	engine.MaxMultipartMemory = constants.FILE_MAX_SIZE

	engine.Use(middleware.RequestID())
	// 注册自定义 Zap 日志中间件，替代 Gin 默认的日志
	engine.Use(logger.GinLogger())
	// 注册 Panic 恢复中间件，参数 true 表示在日志中包含堆栈信息
	engine.Use(logger.GinRecovery(true))
	engine.Use(recorder.GinMiddleware())
	engine.Use(middleware.Secure(middleware.SecureOptions{
		Host:          conf.MainConfig.Host,
		Port:          conf.MainConfig.Port,
		SSLRedirect:   conf.MainConfig.SSLRedirect,
		IsDevelopment: conf.MainConfig.Mode == "dev",
	}))

	// 配置 CORS 跨域规则
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // 允许所有来源（生产环境应指定具体域名）
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", constants.REQUEST_ID_HEADER}
	corsConfig.ExposeHeaders = []string{constants.REQUEST_ID_HEADER}
	engine.Use(cors.New(corsConfig))

	tmpl, err := view.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	engine.SetHTMLTemplate(tmpl)

	target, err := url.Parse(conf.ApiConfig.BaseURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid apiConfig.baseURL %q", conf.ApiConfig.BaseURL)
	}

	opts := []router.Option{
		router.WithBackendProxy(router.NewBackendProxy(target)),
		router.WithStaticPath(conf.StaticSrcConfig.StaticPath),
	}
	if recorder != nil {
		opts = append(opts, router.WithMetrics(recorder.Handler()))
	}

	// 创建路由管理器并注册所有业务路由
	rt := router.NewRouter(handlers, opts...)
	rt.RegisterRoutes(engine)

	return engine, nil
}
