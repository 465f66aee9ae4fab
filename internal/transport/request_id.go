package transport

import "context"

type requestIDKey struct{}

// WithRequestID 将请求 ID 写入 context，Execute 会通过 X-Request-ID 头透传给后端
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext 读取请求 ID，不存在时返回空串
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
