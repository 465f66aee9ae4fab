// Package cache 定义查询缓存使用的存储接口
// 上层只依赖接口，具体实现可以是进程内内存或 Redis
package cache

import (
	"context"
	"time"
)

// CacheService 缓存服务接口
type CacheService interface {
	// Set 设置键值对并指定过期时间，ttl <= 0 表示不过期
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get 获取键对应的值（键不存在返回空字符串和 nil）
	Get(ctx context.Context, key string) (string, error)
	// Delete 删除键（如果存在）
	Delete(ctx context.Context, key string) error
	// DeleteByPattern 删除匹配 glob 模式的所有键
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AsyncCacheService 异步缓存服务接口
// 提供后台任务提交能力，用于非阻塞的缓存刷新
type AsyncCacheService interface {
	CacheService
	// SubmitTask 提交异步任务，队列满时同步执行
	SubmitTask(action func())
	// TrySubmitTask 非阻塞提交，队列满或已关闭时丢弃并返回 false
	TrySubmitTask(action func()) bool
	// Close 停止后台 Worker 并释放连接
	Close() error
}
