package https_server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"contact_book/internal/config"
	"contact_book/internal/dao/cache"
	"contact_book/internal/handler"
	"contact_book/internal/infrastructure/metrics"
	"contact_book/internal/service"
	"contact_book/pkg/constants"
	"contact_book/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := handler.InitTrans("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeBackend 模拟联系人 REST API
type fakeBackend struct {
	mu        sync.Mutex
	requests  []string
	forms     []url.Values
	listFails bool
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	if r.MultipartForm == nil && strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			b.forms = append(b.forms, r.MultipartForm.Value)
		}
	}
	listFails := b.listFails
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/contacts":
		if listFails {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"database down"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"contact":[{"id":1,"name":"Ann Lee","email":"ann@example.com"}],"metadata":{"lastPage":2}}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/contacts/search":
		_, _ = w.Write([]byte(`{"data":{"contact":[{"id":2,"name":"Found ` + r.URL.Query().Get("q") + `"}]}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/contacts/1":
		_, _ = w.Write([]byte(`{"data":{"contact":{"id":1,"name":"Ann Lee","phone":"555"}}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/contacts/77":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Contact not found"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/contacts":
		_, _ = w.Write([]byte(`{"data":{"contact":{"id":3}}}`))
	case r.Method == http.MethodPut, r.Method == http.MethodDelete:
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	case strings.HasPrefix(r.URL.Path, "/public/"):
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNG"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBackend) seen(req string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.requests {
		if r == req {
			return true
		}
	}
	return false
}

func newTestEngine(t *testing.T) (*gin.Engine, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	conf := config.Default()
	conf.ApiConfig.BaseURL = srv.URL
	conf.QueryConfig.RetryDelay = time.Millisecond
	conf.QueryConfig.MaxRetryDelay = time.Millisecond
	conf.QueryConfig.StaleTime = 0
	conf.QueryConfig.CacheTime = 0

	store := cache.NewMemoryCache(1, 8)
	t.Cleanup(func() { _ = store.Close() })
	recorder := metrics.New()
	svc := service.NewServices(conf, store, recorder)

	engine, err := Init(conf, handler.NewHandlers(svc, conf), recorder)
	require.NoError(t, err)
	return engine, backend
}

func do(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func multipartRequest(t *testing.T, target string, fields map[string]string) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("avatarFile", "me.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("PNG"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestContactBook_ListAndSearch(t *testing.T) {
	engine, backend := newTestEngine(t)

	w := do(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ann Lee")
	assert.Contains(t, w.Body.String(), constants.DEFAULT_AVATAR)
	assert.Contains(t, w.Body.String(), `href="/?page=2"`)
	assert.NotEmpty(t, w.Header().Get(constants.REQUEST_ID_HEADER))

	w = do(engine, httptest.NewRequest(http.MethodGet, "/?q=+bob+", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Found bob")
	assert.True(t, backend.seen("GET /api/v1/contacts/search"))

	w = do(engine, httptest.NewRequest(http.MethodGet, "/?page=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContactBook_UpstreamFailure(t *testing.T) {
	engine, backend := newTestEngine(t)
	backend.listFails = true

	w := do(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "request failed with status 500: database down")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	w = do(engine, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	var body handler.ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errorx.CodeUpstream, body.Code)
}

func TestContactBook_CreateValidatesAndRedirects(t *testing.T) {
	engine, backend := newTestEngine(t)

	w := do(engine, httptest.NewRequest(http.MethodGet, "/contacts/add", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/contacts/add"`)

	w = do(engine, multipartRequest(t, "/contacts/add", map[string]string{"email": "ann@example.com"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is a required field")
	assert.False(t, backend.seen("POST /api/v1/contacts"))

	w = do(engine, multipartRequest(t, "/contacts/add", map[string]string{"name": "Bob", "favorite": "true"}))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	require.True(t, backend.seen("POST /api/v1/contacts"))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.NotEmpty(t, backend.forms)
	assert.Equal(t, []string{"Bob"}, backend.forms[0]["name"])
	assert.Equal(t, []string{"true"}, backend.forms[0]["favorite"])
}

func TestContactBook_EditUpdateDelete(t *testing.T) {
	engine, backend := newTestEngine(t)

	w := do(engine, httptest.NewRequest(http.MethodGet, "/contacts/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="Ann Lee"`)
	assert.Contains(t, w.Body.String(), `value="555"`)

	w = do(engine, httptest.NewRequest(http.MethodGet, "/contacts/77", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Contact not found")

	w = do(engine, multipartRequest(t, "/contacts/1", map[string]string{"name": "Ann B"}))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, backend.seen("PUT /api/v1/contacts/1"))

	w = do(engine, httptest.NewRequest(http.MethodPost, "/contacts/1/delete", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, backend.seen("DELETE /api/v1/contacts/1"))

	w = do(engine, httptest.NewRequest(http.MethodPost, "/contacts/delete-all", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, backend.seen("DELETE /api/v1/contacts"))
}

func TestRoutes_NotFoundProxyAndSystem(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := do(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(engine, httptest.NewRequest(http.MethodGet, "/no/such/page", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "does not exist")

	w = do(engine, httptest.NewRequest(http.MethodGet, "/api/v1/contacts?page=1&limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Ann Lee"`)

	w = do(engine, httptest.NewRequest(http.MethodGet, "/public/images/blank-profile-picture.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Equal(t, "PNG", string(body))

	w = do(engine, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = do(engine, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "contact_book_upstream_requests_total")
}

func TestInit_RejectsBadBaseURL(t *testing.T) {
	conf := config.Default()
	conf.ApiConfig.BaseURL = "not a url"
	store := cache.NewMemoryCache(1, 1)
	defer store.Close()
	svc := service.NewServices(conf, store, nil)

	_, err := Init(conf, handler.NewHandlers(svc, conf), nil)
	assert.Error(t, err)
}
