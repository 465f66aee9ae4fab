package cache

import (
	"context"
	"strconv"
	"time"

	"contact_book/internal/config"
	"contact_book/pkg/errorx"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Init 根据 cacheConfig.backend 创建缓存实例
// memory 为进程内缓存；redis 会先 PING 确认连接可用
func Init(ctx context.Context, conf *config.Config) (AsyncCacheService, error) {
	cc := conf.CacheConfig
	switch cc.Backend {
	case "", "memory":
		zap.L().Info("using in-memory query cache")
		return NewMemoryCache(cc.WorkerNum, cc.TaskChanSize), nil
	case "redis":
		addr := conf.RedisConfig.Host + ":" + strconv.Itoa(conf.RedisConfig.Port)
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: conf.RedisConfig.Password,
			DB:       conf.RedisConfig.Db,
			// 连接池配置
			PoolSize:     20,
			MinIdleConns: cc.WorkerNum, // 与 Worker 数量匹配
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, errorx.Wrapf(err, errorx.CodeCacheError, "connect redis %s", addr)
		}
		zap.L().Info("using redis query cache", zap.String("addr", addr), zap.Int("db", conf.RedisConfig.Db))
		return NewRedisCache(client, cc.WorkerNum, cc.TaskChanSize), nil
	default:
		return nil, errorx.Newf(errorx.CodeCacheError, "unknown cache backend %q", cc.Backend)
	}
}
