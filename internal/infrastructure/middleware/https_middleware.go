package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// SecureOptions 安全中间件配置
type SecureOptions struct {
	Host          string // 重定向目标主机
	Port          int    // 重定向目标端口
	SSLRedirect   bool   // 是否把 HTTP 重定向到 HTTPS
	IsDevelopment bool   // 开发模式下跳过 HTTPS 相关检查
}

// Secure 安全响应头与可选的 TLS 重定向
func Secure(opts SecureOptions) gin.HandlerFunc {
	// 在返回函数之前初始化，避免每次请求都重复创建对象
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:        opts.SSLRedirect,
		SSLHost:            opts.Host + ":" + strconv.Itoa(opts.Port),
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "same-origin",
		IsDevelopment:      opts.IsDevelopment,
	})

	return func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)

		// 出错时（包括 secure 已写出 HTTPS 重定向响应）终止后续处理
		if err != nil {
			// 不要在中间件里用 Fatal，只记录并终止当前请求
			zap.L().Warn("secure middleware rejected request", zap.Error(err))
			c.Abort()
			return
		}
		c.Next()
	}
}

// TlsHandler 仅做 TLS 重定向
func TlsHandler(host string, port int) gin.HandlerFunc {
	return Secure(SecureOptions{Host: host, Port: port, SSLRedirect: true})
}
