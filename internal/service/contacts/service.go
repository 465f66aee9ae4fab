// Package contacts 联系人访问层
// 把列表、搜索、详情、增删改请求翻译成 REST 调用，并对结果做归一化：
// 读操作遇到异常数据时降级为空结果，写操作的错误原样返回给调用方
package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"contact_book/internal/model"
	"contact_book/internal/transport"
	"contact_book/pkg/constants"
	"contact_book/pkg/errorx"

	"go.uber.org/zap"
)

// Executor 请求执行器，由 transport.Client 实现
type Executor interface {
	Execute(ctx context.Context, url string, cfg transport.Config) (json.RawMessage, error)
}

// DegradedObserver 记录读操作降级次数，由 metrics 包实现
type DegradedObserver interface {
	DegradedRead(op string)
}

// Option 可选配置
type Option func(*contactsService)

// WithBasePath 覆盖默认接口前缀 /api/v1/contacts
func WithBasePath(path string) Option {
	return func(s *contactsService) {
		if path != "" {
			s.basePath = strings.TrimRight(path, "/")
		}
	}
}

// WithDefaultAvatar 覆盖默认头像
func WithDefaultAvatar(avatar string) Option {
	return func(s *contactsService) {
		if avatar != "" {
			s.defaultAvatar = avatar
		}
	}
}

// WithDefaultLimit 覆盖默认每页条数
func WithDefaultLimit(limit int) Option {
	return func(s *contactsService) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

// WithDegradedObserver 注入降级观测
func WithDegradedObserver(o DegradedObserver) Option {
	return func(s *contactsService) {
		s.degraded = o
	}
}

// contactsService 联系人访问层实现，无共享可变状态
type contactsService struct {
	exec          Executor
	basePath      string
	defaultAvatar string
	defaultLimit  int
	degraded      DegradedObserver
}

// NewContactsService 构造函数
func NewContactsService(exec Executor, opts ...Option) *contactsService {
	s := &contactsService{
		exec:          exec,
		basePath:      constants.CONTACTS_BASE_PATH,
		defaultAvatar: constants.DEFAULT_AVATAR,
		defaultLimit:  constants.DEFAULT_PAGE_LIMIT,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List 分页获取联系人
// GET /api/v1/contacts?page={page}&limit={limit}
func (s *contactsService) List(ctx context.Context, page, limit int) (*model.PageResult, error) {
	page, limit = s.pageArgs(page, limit)
	u := fmt.Sprintf("%s?page=%d&limit=%d", s.basePath, page, limit)
	zap.L().Debug("fetching contacts", zap.String("url", u))

	data, err := s.exec.Execute(ctx, u, transport.Config{})
	if err != nil {
		return nil, err
	}
	return s.normalizeRead("list", data), nil
}

// Search 按关键字分页搜索
// 关键字去除首尾空白后为空时直接返回空结果，不发起请求
// GET /api/v1/contacts/search?page={page}&limit={limit}&q={term}
func (s *contactsService) Search(ctx context.Context, page, limit int, term string) (*model.PageResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		zap.L().Warn("invalid search term, returning empty page")
		return model.EmptyPage(), nil
	}
	page, limit = s.pageArgs(page, limit)
	u := fmt.Sprintf("%s/search?page=%d&limit=%d&q=%s", s.basePath, page, limit, url.QueryEscape(term))
	zap.L().Debug("searching contacts", zap.String("url", u))

	data, err := s.exec.Execute(ctx, u, transport.Config{})
	if err != nil {
		return nil, err
	}
	return s.normalizeRead("search", data), nil
}

// GetOne 获取单个联系人，头像为空时填充默认头像
// GET /api/v1/contacts/{id}
func (s *contactsService) GetOne(ctx context.Context, id model.ContactID) (*model.Contact, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	data, err := s.exec.Execute(ctx, s.itemPath(id), transport.Config{})
	if err != nil {
		return nil, err
	}

	contact, ok := decodeContact(data)
	if !ok {
		zap.L().Warn("no contact in response, using placeholder", zap.String("id", id.String()))
		s.observeDegraded("get")
		contact = model.Contact{ID: id}
	}
	contact.Avatar = s.avatarOrDefault(contact.Avatar)
	return &contact, nil
}

// Create 创建联系人，表单以 multipart/form-data 提交，返回后端结果原样透传
// POST /api/v1/contacts
func (s *contactsService) Create(ctx context.Context, form model.ContactForm) (json.RawMessage, error) {
	cfg, err := multipartConfig(http.MethodPost, form)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("creating contact", zap.String("name", form.Name))
	return s.exec.Execute(ctx, s.basePath, cfg)
}

// Update 更新联系人
// PUT /api/v1/contacts/{id}
func (s *contactsService) Update(ctx context.Context, id model.ContactID, form model.ContactForm) (json.RawMessage, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	cfg, err := multipartConfig(http.MethodPut, form)
	if err != nil {
		return nil, err
	}
	return s.exec.Execute(ctx, s.itemPath(id), cfg)
}

// Delete 删除联系人，错误原样返回
// DELETE /api/v1/contacts/{id}
func (s *contactsService) Delete(ctx context.Context, id model.ContactID) (json.RawMessage, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	u := s.itemPath(id)
	zap.L().Debug("deleting contact", zap.String("url", u))
	data, err := s.exec.Execute(ctx, u, transport.Config{Method: http.MethodDelete})
	if err != nil {
		zap.L().Error("delete contact failed", zap.String("url", u), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// DeleteAll 删除全部联系人
// DELETE /api/v1/contacts
func (s *contactsService) DeleteAll(ctx context.Context) (json.RawMessage, error) {
	return s.exec.Execute(ctx, s.basePath, transport.Config{Method: http.MethodDelete})
}

// NormalizePage 把 data 字段归一化为 PageResult
// contact 缺失或不是数组时返回空结果；每个联系人头像为空时填充默认头像
func (s *contactsService) NormalizePage(data json.RawMessage) (*model.PageResult, bool) {
	var payload struct {
		Contact  json.RawMessage `json:"contact"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if len(data) == 0 || json.Unmarshal(data, &payload) != nil {
		return model.EmptyPage(), false
	}
	var items []json.RawMessage
	if len(payload.Contact) == 0 || json.Unmarshal(payload.Contact, &items) != nil || items == nil {
		return model.EmptyPage(), false
	}

	result := &model.PageResult{
		Contact:  make([]model.Contact, 0, len(items)),
		Metadata: decodeMetadata(payload.Metadata),
	}
	for _, item := range items {
		var c model.Contact
		if err := json.Unmarshal(item, &c); err != nil || c.ID == "" {
			zap.L().Warn("skip malformed contact", zap.ByteString("item", item))
			continue
		}
		c.Avatar = s.avatarOrDefault(c.Avatar)
		result.Contact = append(result.Contact, c)
	}
	return result, true
}

func (s *contactsService) normalizeRead(op string, data json.RawMessage) *model.PageResult {
	result, ok := s.NormalizePage(data)
	if !ok {
		zap.L().Warn("no contact data, returning empty page", zap.String("op", op))
		s.observeDegraded(op)
	}
	return result
}

func (s *contactsService) observeDegraded(op string) {
	if s.degraded != nil {
		s.degraded.DegradedRead(op)
	}
}

func (s *contactsService) avatarOrDefault(avatar string) string {
	if avatar == "" {
		return s.defaultAvatar
	}
	return avatar
}

func (s *contactsService) pageArgs(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	return page, limit
}

func (s *contactsService) itemPath(id model.ContactID) string {
	return s.basePath + "/" + url.PathEscape(id.String())
}

func requireID(id model.ContactID) error {
	if strings.TrimSpace(id.String()) == "" {
		return errorx.New(errorx.CodeInvalidParam, "contact id is required")
	}
	return nil
}

func multipartConfig(method string, form model.ContactForm) (transport.Config, error) {
	body, contentType, err := form.Encode()
	if err != nil {
		return transport.Config{}, errorx.Wrap(err, errorx.CodeInvalidParam, "encode contact form")
	}
	header := http.Header{}
	header.Set("Content-Type", contentType)
	return transport.Config{Method: method, Header: header, Body: body}, nil
}

// decodeContact 接受 { contact: {...} } 或直接的联系人对象
func decodeContact(data json.RawMessage) (model.Contact, bool) {
	var fields map[string]json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &fields) != nil || len(fields) == 0 {
		return model.Contact{}, false
	}
	raw := data
	if inner, wrapped := fields["contact"]; wrapped {
		raw = inner
	}
	var c model.Contact
	if err := json.Unmarshal(raw, &c); err != nil {
		return model.Contact{}, false
	}
	if c.ID == "" && c.Name == "" && len(c.Extra) == 0 {
		return model.Contact{}, false
	}
	return c, true
}

func decodeMetadata(raw json.RawMessage) model.Metadata {
	var m model.Metadata
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return model.DefaultMetadata()
	}
	if m.LastPage < 1 {
		m.LastPage = model.DefaultMetadata().LastPage
	}
	return m
}
