// Package query 查询缓存：按 key 缓存读结果，支持新鲜期、后台刷新、请求合并与失败重试
// 所有参数通过 Options 注入，没有全局状态
package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"contact_book/internal/config"
	"contact_book/internal/dao/cache"
	"contact_book/pkg/constants"
	"contact_book/pkg/errorx"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// 缓存查询结果，用于指标标签
const (
	ResultHit   = "hit"
	ResultStale = "stale"
	ResultMiss  = "miss"
)

// Options 查询缓存参数
type Options struct {
	StaleTime     time.Duration // 新鲜期内直接返回缓存
	CacheTime     time.Duration // 缓存保留时间，超过后视为未命中；0 表示不缓存
	Retry         int           // 读失败重试次数
	MutationRetry int           // 写失败重试次数
	RetryDelay    time.Duration // 首次重试间隔，之后指数增长
	MaxRetryDelay time.Duration // 重试间隔上限
	KeyPrefix     string        // 缓存键前缀
}

// DefaultOptions 新鲜期 5 分钟，缓存 10 分钟，读重试 3 次，写重试 1 次
func DefaultOptions() Options {
	return Options{
		StaleTime:     5 * time.Minute,
		CacheTime:     10 * time.Minute,
		Retry:         3,
		MutationRetry: 1,
		RetryDelay:    time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// OptionsFromConfig 由 queryConfig 构造 Options
func OptionsFromConfig(c config.QueryConfig) Options {
	return Options{
		StaleTime:     c.StaleTime,
		CacheTime:     c.CacheTime,
		Retry:         c.Retry,
		MutationRetry: c.MutationRetry,
		RetryDelay:    c.RetryDelay,
		MaxRetryDelay: c.MaxRetryDelay,
		KeyPrefix:     c.KeyPrefix,
	}
}

// FetchFunc 实际的取数函数
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// Recorder 记录缓存命中情况，由 metrics 包实现
type Recorder interface {
	CacheResult(result string)
}

// entry 缓存中保存的结构
type entry struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt int64           `json:"updatedAt"` // UnixNano
}

// Client 查询缓存客户端，可并发使用
type Client struct {
	store    cache.AsyncCacheService
	opts     Options
	recorder Recorder
	group    singleflight.Group
	now      func() time.Time
}

// New 创建查询缓存客户端，recorder 可为 nil
func New(store cache.AsyncCacheService, opts Options, recorder Recorder) *Client {
	if opts.CacheTime < opts.StaleTime {
		opts.CacheTime = opts.StaleTime
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	if opts.MutationRetry < 0 {
		opts.MutationRetry = 0
	}
	return &Client{
		store:    store,
		opts:     opts,
		recorder: recorder,
		now:      time.Now,
	}
}

// Key 以 ":" 拼接键，带上前缀
func (c *Client) Key(parts ...string) string {
	if c.opts.KeyPrefix == "" {
		return strings.Join(parts, ":")
	}
	return c.opts.KeyPrefix + ":" + strings.Join(parts, ":")
}

// Fetch 读取 key 对应的数据
//   - 新鲜期内：直接返回缓存
//   - 过期但仍在缓存时间内：返回缓存并提交后台刷新
//   - 未命中：调用 fn，成功后写入缓存；同一 key 的并发请求只调用一次
//
// 错误不会被缓存；缓存读写失败只记录日志，不影响结果
func (c *Client) Fetch(ctx context.Context, key []string, fn FetchFunc) (json.RawMessage, error) {
	k := c.Key(key...)

	if e, ok := c.load(ctx, k); ok {
		if c.now().Sub(time.Unix(0, e.UpdatedAt)) < c.opts.StaleTime {
			c.record(ResultHit)
			return e.Data, nil
		}
		c.record(ResultStale)
		c.refresh(k, fn)
		return e.Data, nil
	}

	c.record(ResultMiss)
	return c.fetchAndStore(ctx, k, fn)
}

// Mutate 执行写操作（失败重试 MutationRetry 次），成功后按前缀失效相关 key
func (c *Client) Mutate(ctx context.Context, fn FetchFunc, invalidate ...[]string) (json.RawMessage, error) {
	data, err := c.retry(ctx, c.opts.MutationRetry, "mutation", fn)
	if err != nil {
		return nil, err
	}
	for _, key := range invalidate {
		c.Invalidate(ctx, key...)
	}
	return data, nil
}

// Invalidate 删除 key 本身及以 key: 开头的所有键
// contact:5 不会误删 contact:50
func (c *Client) Invalidate(ctx context.Context, key ...string) {
	k := c.Key(key...)
	if err := c.store.Delete(ctx, k); err != nil {
		zap.L().Warn("query cache invalidate failed", zap.String("key", k), zap.Error(err))
	}
	if err := c.store.DeleteByPattern(ctx, k+":*"); err != nil {
		zap.L().Warn("query cache invalidate by pattern failed", zap.String("key", k), zap.Error(err))
	}
}

// fetchAndStore 同一 key 的并发请求共享一次取数
// 取数使用脱离调用方取消的 context（保留其中的值，超时 REFRESH_TIMEOUT），
// 调用方取消时只是自己停止等待，不影响其它等待者
func (c *Client) fetchAndStore(ctx context.Context, k string, fn FetchFunc) (json.RawMessage, error) {
	ch := c.group.DoChan(k, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.REFRESH_TIMEOUT)
		defer cancel()
		data, err := c.retry(fetchCtx, c.opts.Retry, k, fn)
		if err != nil {
			return nil, err
		}
		c.save(fetchCtx, k, data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			zap.L().Debug("query shared with in-flight request", zap.String("key", k))
		}
		return res.Val.(json.RawMessage), nil
	}
}

// refresh 提交后台刷新任务，与前台请求共享 singleflight
// 队列已满时跳过本次刷新，缓存值已经返回给调用方
func (c *Client) refresh(k string, fn FetchFunc) {
	queued := c.store.TrySubmitTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.REFRESH_TIMEOUT)
		defer cancel()
		if _, err := c.fetchAndStore(ctx, k, fn); err != nil {
			zap.L().Warn("background refresh failed", zap.String("key", k), zap.Error(err))
		}
	})
	if !queued {
		zap.L().Debug("background refresh skipped, queue full", zap.String("key", k))
	}
}

func (c *Client) load(ctx context.Context, k string) (entry, bool) {
	raw, err := c.store.Get(ctx, k)
	if err != nil {
		zap.L().Warn("query cache read failed", zap.String("key", k), zap.Error(err))
		return entry{}, false
	}
	if raw == "" {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		zap.L().Warn("query cache entry corrupted", zap.String("key", k), zap.Error(err))
		return entry{}, false
	}
	return e, true
}

func (c *Client) save(ctx context.Context, k string, data json.RawMessage) {
	if c.opts.CacheTime <= 0 {
		return
	}
	if data == nil {
		data = json.RawMessage("null")
	}
	raw, err := json.Marshal(entry{Data: data, UpdatedAt: c.now().UnixNano()})
	if err != nil {
		zap.L().Warn("query cache encode failed", zap.String("key", k), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, k, string(raw), c.opts.CacheTime); err != nil {
		zap.L().Warn("query cache write failed", zap.String("key", k), zap.Error(err))
	}
}

// retry 指数退避重试，4xx 与参数错误不重试
func (c *Client) retry(ctx context.Context, retries int, op string, fn FetchFunc) (json.RawMessage, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryDelay
	if c.opts.MaxRetryDelay > 0 {
		b.MaxInterval = c.opts.MaxRetryDelay
	}

	attempt := 0
	return backoff.Retry(ctx, func() (json.RawMessage, error) {
		attempt++
		data, err := fn(ctx)
		if err != nil && !Retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return data, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			zap.L().Warn("query failed, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)
}

// Retryable 判断错误是否值得重试
// 网络错误与 5xx 重试；4xx、参数错误与 context 取消不重试
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if status := errorx.StatusOf(err); status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return false
	}
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) && codeErr.Code == errorx.CodeInvalidParam {
		return false
	}
	return true
}

func (c *Client) record(result string) {
	if c.recorder != nil {
		c.recorder.CacheResult(result)
	}
}
