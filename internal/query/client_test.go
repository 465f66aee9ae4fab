package query

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"contact_book/internal/dao/cache"
	"contact_book/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (r *countingRecorder) CacheResult(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[result]++
}

func (r *countingRecorder) count(result string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[result]
}

func testOptions() Options {
	return Options{
		StaleTime:     time.Minute,
		CacheTime:     5 * time.Minute,
		Retry:         2,
		MutationRetry: 1,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 2 * time.Millisecond,
		KeyPrefix:     "test",
	}
}

func newTestClient(t *testing.T) (*Client, *cache.MemoryCache, *countingRecorder) {
	t.Helper()
	store := cache.NewMemoryCache(1, 4)
	t.Cleanup(func() { _ = store.Close() })
	rec := &countingRecorder{}
	return New(store, testOptions(), rec), store, rec
}

func constFetch(calls *atomic.Int32, body string) FetchFunc {
	return func(context.Context) (json.RawMessage, error) {
		calls.Add(1)
		return json.RawMessage(body), nil
	}
}

func TestKey(t *testing.T) {
	c, _, _ := newTestClient(t)
	assert.Equal(t, "test:contact:5", c.Key("contact", "5"))

	c = New(cache.NewMemoryCache(1, 1), Options{}, nil)
	assert.Equal(t, "contacts:search", c.Key("contacts", "search"))
}

func TestFetch_FreshHit(t *testing.T) {
	c, _, rec := newTestClient(t)
	var calls atomic.Int32
	ctx := context.Background()

	data, err := c.Fetch(ctx, []string{"contacts", "p=1"}, constFetch(&calls, `{"n":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(data))

	data, err = c.Fetch(ctx, []string{"contacts", "p=1"}, constFetch(&calls, `{"n":2}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(data))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, rec.count(ResultMiss))
	assert.Equal(t, 1, rec.count(ResultHit))
}

func TestFetch_StaleServesCacheAndRefreshes(t *testing.T) {
	c, _, rec := newTestClient(t)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	key := []string{"contact", "7"}

	var calls atomic.Int32
	_, err := c.Fetch(ctx, key, constFetch(&calls, `"v1"`))
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	data, err := c.Fetch(ctx, key, constFetch(&calls, `"v2"`))
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, string(data), "stale value returned immediately")
	assert.Equal(t, 1, rec.count(ResultStale))

	require.Eventually(t, func() bool {
		e, ok := c.load(ctx, c.Key(key...))
		return ok && string(e.Data) == `"v2"`
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())

	data, err = c.Fetch(ctx, key, constFetch(&calls, `"v3"`))
	require.NoError(t, err)
	assert.Equal(t, `"v2"`, string(data))
	assert.Equal(t, 1, rec.count(ResultHit))
}

func TestFetch_DeduplicatesConcurrentMisses(t *testing.T) {
	c, _, _ := newTestClient(t)
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (json.RawMessage, error) {
		calls.Add(1)
		<-release
		return json.RawMessage(`[1]`), nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := c.Fetch(context.Background(), []string{"contacts"}, fn)
			if err == nil {
				results[i] = string(d)
			}
		}(i)
	}
	// 等待首个请求进入 fn 后再放行
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, `[1]`, r)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	c, _, _ := newTestClient(t)
	var calls atomic.Int32
	fn := func(context.Context) (json.RawMessage, error) {
		if calls.Add(1) < 3 {
			return nil, errorx.NewRequestError(503, "")
		}
		return json.RawMessage(`"ok"`), nil
	}

	data, err := c.Fetch(context.Background(), []string{"contacts"}, fn)
	require.NoError(t, err)
	assert.Equal(t, `"ok"`, string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_GivesUpAfterRetryLimit(t *testing.T) {
	c, store, _ := newTestClient(t)
	var calls atomic.Int32
	fn := func(context.Context) (json.RawMessage, error) {
		calls.Add(1)
		return nil, errorx.NewRequestError(500, "boom")
	}

	_, err := c.Fetch(context.Background(), []string{"contacts"}, fn)
	require.Error(t, err)
	assert.Equal(t, 500, errorx.StatusOf(err))
	assert.Equal(t, int32(3), calls.Load(), "1 attempt + 2 retries")

	// 错误不缓存
	raw, _ := store.Get(context.Background(), c.Key("contacts"))
	assert.Empty(t, raw)
}

func TestFetch_ClientErrorsAreNotRetried(t *testing.T) {
	c, _, _ := newTestClient(t)
	var calls atomic.Int32
	notFound := errorx.NewRequestError(404, "Contact not found")
	fn := func(context.Context) (json.RawMessage, error) {
		calls.Add(1)
		return nil, notFound
	}

	_, err := c.Fetch(context.Background(), []string{"contact", "9"}, fn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, notFound))
	assert.Equal(t, int32(1), calls.Load())
}

func TestMutate_RetriesAndInvalidates(t *testing.T) {
	c, store, _ := newTestClient(t)
	ctx := context.Background()
	var reads atomic.Int32
	_, _ = c.Fetch(ctx, []string{"contacts", "p=1"}, constFetch(&reads, `1`))
	_, _ = c.Fetch(ctx, []string{"contact", "5"}, constFetch(&reads, `5`))
	_, _ = c.Fetch(ctx, []string{"contact", "50"}, constFetch(&reads, `50`))

	var calls atomic.Int32
	data, err := c.Mutate(ctx, func(context.Context) (json.RawMessage, error) {
		if calls.Add(1) == 1 {
			return nil, errorx.WrapRequestError(errors.New("connection reset"), "network")
		}
		return json.RawMessage(`{"id":5}`), nil
	}, []string{"contacts"}, []string{"contact", "5"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5}`, string(data))
	assert.Equal(t, int32(2), calls.Load())

	raw, _ := store.Get(ctx, c.Key("contacts", "p=1"))
	assert.Empty(t, raw)
	raw, _ = store.Get(ctx, c.Key("contact", "5"))
	assert.Empty(t, raw)
	raw, _ = store.Get(ctx, c.Key("contact", "50"))
	assert.NotEmpty(t, raw)
}

func TestMutate_FailureKeepsCache(t *testing.T) {
	c, store, _ := newTestClient(t)
	ctx := context.Background()
	var reads atomic.Int32
	_, _ = c.Fetch(ctx, []string{"contacts"}, constFetch(&reads, `1`))

	var calls atomic.Int32
	wantErr := errorx.NewRequestError(500, "")
	_, err := c.Mutate(ctx, func(context.Context) (json.RawMessage, error) {
		calls.Add(1)
		return nil, wantErr
	}, []string{"contacts"})
	assert.True(t, errors.Is(err, wantErr))
	assert.Equal(t, int32(2), calls.Load(), "1 attempt + 1 mutation retry")

	raw, _ := store.Get(ctx, c.Key("contacts"))
	assert.NotEmpty(t, raw)
}

// brokenStore 所有读写都失败
type brokenStore struct{ cache.AsyncCacheService }

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", errorx.New(errorx.CodeCacheError, "down")
}
func (brokenStore) Set(context.Context, string, string, time.Duration) error {
	return errorx.New(errorx.CodeCacheError, "down")
}

func TestFetch_CacheFailureFallsBackToFetcher(t *testing.T) {
	inner := cache.NewMemoryCache(1, 1)
	defer inner.Close()
	c := New(brokenStore{inner}, testOptions(), nil)
	var calls atomic.Int32

	for i := 0; i < 2; i++ {
		data, err := c.Fetch(context.Background(), []string{"contacts"}, constFetch(&calls, `"x"`))
		require.NoError(t, err)
		assert.Equal(t, `"x"`, string(data))
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(errorx.NewRequestError(500, "")))
	assert.True(t, Retryable(errorx.WrapRequestError(errors.New("dial"), "network")))
	assert.False(t, Retryable(errorx.NewRequestError(400, "")))
	assert.False(t, Retryable(errorx.NewRequestError(404, "")))
	assert.False(t, Retryable(errorx.New(errorx.CodeInvalidParam, "id")))
	assert.False(t, Retryable(context.Canceled))
}

func TestFetch_ZeroCacheTimeNeverStores(t *testing.T) {
	store := cache.NewMemoryCache(1, 4)
	defer store.Close()
	c := New(store, Options{RetryDelay: time.Millisecond}, nil)
	var calls atomic.Int32
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(ctx, []string{"contacts"}, constFetch(&calls, `{"n":1}`))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())

	raw, err := store.Get(ctx, "contacts")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestFetch_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	c, _, _ := newTestClient(t)
	key := []string{"contacts", "page=1"}
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(ctx context.Context) (json.RawMessage, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return json.RawMessage(`{"page":1}`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctxA, key, fn)
		errA <- err
	}()
	<-started

	type result struct {
		data json.RawMessage
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		d, err := c.Fetch(context.Background(), key, fn)
		resB <- result{d, err}
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	got := <-resB
	require.NoError(t, got.err)
	assert.JSONEq(t, `{"page":1}`, string(got.data))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_StaleWithFullQueueSkipsRefresh(t *testing.T) {
	store := cache.NewMemoryCache(1, 1)
	defer store.Close()
	c := New(store, testOptions(), nil)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	key := []string{"contact", "9"}

	var calls atomic.Int32
	_, err := c.Fetch(ctx, key, constFetch(&calls, `"v1"`))
	require.NoError(t, err)

	// 占住唯一的 worker 并填满缓冲区
	block := make(chan struct{})
	busy := make(chan struct{})
	store.SubmitTask(func() { close(busy); <-block })
	<-busy
	store.SubmitTask(func() {})
	defer close(block)

	now = now.Add(2 * time.Minute)
	slow := func(context.Context) (json.RawMessage, error) {
		calls.Add(1)
		<-block
		return json.RawMessage(`"v2"`), nil
	}
	data, err := c.Fetch(ctx, key, slow)
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, string(data))
	assert.Equal(t, int32(1), calls.Load(), "refresh dropped instead of running inline")
}
