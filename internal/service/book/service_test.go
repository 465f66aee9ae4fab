package book

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"contact_book/internal/dao/cache"
	"contact_book/internal/model"
	"contact_book/internal/query"
	"contact_book/internal/service/contacts"
	"contact_book/internal/transport"
	"contact_book/pkg/constants"
	"contact_book/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeContacts 统计访问层调用次数
type fakeContacts struct {
	mu     sync.Mutex
	calls  map[string]int
	page   *model.PageResult
	one    *model.Contact
	err    error
	avatar []string
}

func (f *fakeContacts) hit(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
}

func (f *fakeContacts) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeContacts) List(context.Context, int, int) (*model.PageResult, error) {
	f.hit("list")
	return f.page, f.err
}

func (f *fakeContacts) Search(_ context.Context, _, _ int, term string) (*model.PageResult, error) {
	f.hit("search")
	if strings.TrimSpace(term) == "" {
		return model.EmptyPage(), nil
	}
	return f.page, f.err
}

func (f *fakeContacts) GetOne(context.Context, model.ContactID) (*model.Contact, error) {
	f.hit("get")
	return f.one, f.err
}

func (f *fakeContacts) Create(_ context.Context, form model.ContactForm) (json.RawMessage, error) {
	f.hit("create")
	if form.Avatar != nil {
		b, _ := io.ReadAll(form.Avatar)
		f.mu.Lock()
		f.avatar = append(f.avatar, string(b))
		f.mu.Unlock()
	}
	if f.count("create") == 1 && f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"id":9}`), nil
}

func (f *fakeContacts) Update(context.Context, model.ContactID, model.ContactForm) (json.RawMessage, error) {
	f.hit("update")
	return json.RawMessage(`{"id":1}`), f.err
}

func (f *fakeContacts) Delete(context.Context, model.ContactID) (json.RawMessage, error) {
	f.hit("delete")
	return nil, f.err
}

func (f *fakeContacts) DeleteAll(context.Context) (json.RawMessage, error) {
	f.hit("deleteAll")
	return nil, f.err
}

func newTestQuery(t *testing.T) *query.Client {
	t.Helper()
	store := cache.NewMemoryCache(1, 4)
	t.Cleanup(func() { _ = store.Close() })
	opts := query.DefaultOptions()
	opts.RetryDelay = time.Millisecond
	opts.MaxRetryDelay = time.Millisecond
	return query.New(store, opts, nil)
}

func samplePage() *model.PageResult {
	return &model.PageResult{
		Contact:  []model.Contact{{ID: "1", Name: "Ann", Avatar: constants.DEFAULT_AVATAR}},
		Metadata: model.Metadata{LastPage: 3},
	}
}

func TestList_CachedBetweenCalls(t *testing.T) {
	fc := &fakeContacts{page: samplePage()}
	svc := NewBookService(fc, newTestQuery(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := svc.List(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, res.Contact, 1)
		assert.Equal(t, "Ann", res.Contact[0].Name)
		assert.Equal(t, 3, res.Metadata.LastPage)
	}
	assert.Equal(t, 1, fc.count("list"))

	// 不同分页是不同的 key
	_, err := svc.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.count("list"))
}

func TestSearch_BlankTermBypassesCache(t *testing.T) {
	fc := &fakeContacts{page: samplePage()}
	svc := NewBookService(fc, newTestQuery(t))

	res, err := svc.Search(context.Background(), 1, 10, "   ")
	require.NoError(t, err)
	assert.Empty(t, res.Contact)
	assert.Equal(t, 1, res.Metadata.LastPage)

	_, err = svc.Search(context.Background(), 1, 10, " ann ")
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), 1, 10, "ann")
	require.NoError(t, err)
	assert.Equal(t, 2, fc.count("search"), "trimmed terms share one cache entry")
}

func TestGet_ReadErrorsPropagate(t *testing.T) {
	notFound := errorx.NewRequestError(http.StatusNotFound, "Contact not found")
	fc := &fakeContacts{err: notFound}
	svc := NewBookService(fc, newTestQuery(t))

	_, err := svc.Get(context.Background(), "404")
	require.Error(t, err)
	assert.True(t, errorx.IsNotFound(err))
	assert.Equal(t, 1, fc.count("get"), "4xx is not retried")

	_, err = svc.Get(context.Background(), "")
	assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))
}

func TestMutations_InvalidateReads(t *testing.T) {
	fc := &fakeContacts{page: samplePage(), one: &model.Contact{ID: "1", Name: "Ann"}}
	svc := NewBookService(fc, newTestQuery(t))
	ctx := context.Background()

	mutations := []func() error{
		func() error { _, err := svc.Create(ctx, model.ContactForm{Name: "Bob"}); return err },
		func() error { _, err := svc.Update(ctx, "1", model.ContactForm{Name: "Ann B"}); return err },
		func() error { _, err := svc.Delete(ctx, "1"); return err },
		func() error { _, err := svc.DeleteAll(ctx); return err },
	}
	for i, mutate := range mutations {
		_, err := svc.List(ctx, 1, 10)
		require.NoError(t, err)
		_, err = svc.Get(ctx, "1")
		require.NoError(t, err)

		require.NoError(t, mutate())

		_, err = svc.List(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, i+2, fc.count("list"), "list refetched after mutation %d", i)
	}
	// create 不失效单个联系人，update 与 delete 会
	assert.Equal(t, 3, fc.count("get"))
}

func TestCreate_RetryReplaysAvatar(t *testing.T) {
	fc := &fakeContacts{err: errorx.NewRequestError(http.StatusBadGateway, "")}
	svc := NewBookService(fc, newTestQuery(t))

	form := model.ContactForm{Name: "Ann", AvatarName: "a.png", Avatar: strings.NewReader("PNGDATA")}
	data, err := svc.Create(context.Background(), form)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9}`, string(data))
	assert.Equal(t, 2, fc.count("create"))
	assert.Equal(t, []string{"PNGDATA", "PNGDATA"}, fc.avatar)
}

func TestDelete_ErrorPropagates(t *testing.T) {
	wantErr := errorx.NewRequestError(http.StatusForbidden, "nope")
	fc := &fakeContacts{err: wantErr}
	svc := NewBookService(fc, newTestQuery(t))

	_, err := svc.Delete(context.Background(), "1")
	assert.Same(t, wantErr, err)
	_, err = svc.DeleteAll(context.Background())
	assert.Same(t, wantErr, err)
}

// 完整链路：book -> contacts -> transport -> 模拟后端
func TestBook_EndToEndWithBackend(t *testing.T) {
	var listCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/contacts":
			listCalls.Add(1)
			_, _ = w.Write([]byte(`{"data":{"contact":[{"id":1,"name":"A"}],"metadata":{"lastPage":3}}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/contacts/77":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Contact not found"}`))
		case r.Method == http.MethodDelete:
			_, _ = w.Write([]byte(`{"message":"deleted"}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	access := contacts.NewContactsService(transport.New(transport.Options{BaseURL: srv.URL}))
	svc := NewBookService(access, newTestQuery(t))
	ctx := context.Background()

	res, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"contact":[{"id":1,"name":"A","avatar":"`+constants.DEFAULT_AVATAR+`"}],"metadata":{"lastPage":3}}`, string(out))

	_, err = svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), listCalls.Load())

	_, err = svc.Get(ctx, "77")
	require.Error(t, err)
	assert.Equal(t, "request failed with status 404: Contact not found", err.Error())

	_, err = svc.Delete(ctx, "1")
	require.NoError(t, err)
	_, err = svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), listCalls.Load())
}

func TestList_CachedPageKeepsMetadataExtras(t *testing.T) {
	page := samplePage()
	page.Metadata.Extra = map[string]json.RawMessage{"sort": json.RawMessage(`"name"`)}
	fc := &fakeContacts{page: page}
	svc := NewBookService(fc, newTestQuery(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := svc.List(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Metadata.LastPage)
		assert.JSONEq(t, `"name"`, string(res.Metadata.Extra["sort"]))
	}
	assert.Equal(t, 1, fc.count("list"))
}
