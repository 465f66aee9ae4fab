package middleware

import (
	"contact_book/internal/transport"
	"contact_book/pkg/constants"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID 为每个请求分配 X-Request-ID（沿用上游传入的值），写入响应头
// 并放进 request context，发往后端的请求会带上同一个 ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constants.REQUEST_ID_HEADER)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(constants.REQUEST_ID_HEADER, id)
		c.Header(constants.REQUEST_ID_HEADER, id)
		c.Request = c.Request.WithContext(transport.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
