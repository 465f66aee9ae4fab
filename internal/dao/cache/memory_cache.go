package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"contact_book/pkg/errorx"
)

type memoryItem struct {
	value    string
	expireAt time.Time // 零值表示不过期
}

// MemoryCache 进程内缓存实现，单实例部署时使用
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	pool  *workerPool
	now   func() time.Time
}

// NewMemoryCache 创建内存缓存并启动 Worker Pool
func NewMemoryCache(workerNum, taskChanSize int) *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		pool:  newWorkerPool(workerNum, taskChanSize),
		now:   time.Now,
	}
}

func (m *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	item := memoryItem{value: value}
	if ttl > 0 {
		item.expireAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return "", nil
	}
	if !item.expireAt.IsZero() && !m.now().Before(item.expireAt) {
		m.mu.Lock()
		// 重新检查，避免删掉并发写入的新值
		if cur, ok := m.items[key]; ok && cur.expireAt.Equal(item.expireAt) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return "", nil
	}
	return item.value, nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// DeleteByPattern 与 Redis 的 glob 语义保持一致（*、?、[...]）
func (m *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "memory cache bad pattern %s", pattern)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *MemoryCache) SubmitTask(action func()) {
	m.pool.submit(action)
}

// TrySubmitTask 队列满时丢弃任务
func (m *MemoryCache) TrySubmitTask(action func()) bool {
	return m.pool.trySubmit(action)
}

func (m *MemoryCache) Close() error {
	m.pool.close()
	return nil
}

var _ AsyncCacheService = (*MemoryCache)(nil)
