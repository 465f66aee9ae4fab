// Package book 通讯录业务层
// 在联系人访问层之上加一层查询缓存：读结果按 key 缓存，写操作成功后失效相关 key
package book

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"

	"contact_book/internal/model"
	"contact_book/internal/query"
	"contact_book/pkg/errorx"

	"go.uber.org/zap"
)

// 缓存 key 的第一段
const (
	keyContacts = "contacts" // 列表与搜索结果，contacts:search 也在其下
	keyContact  = "contact"  // 单个联系人 contact:{id}
)

// Contacts 联系人访问层，由 contacts 包实现
type Contacts interface {
	List(ctx context.Context, page, limit int) (*model.PageResult, error)
	Search(ctx context.Context, page, limit int, term string) (*model.PageResult, error)
	GetOne(ctx context.Context, id model.ContactID) (*model.Contact, error)
	Create(ctx context.Context, form model.ContactForm) (json.RawMessage, error)
	Update(ctx context.Context, id model.ContactID, form model.ContactForm) (json.RawMessage, error)
	Delete(ctx context.Context, id model.ContactID) (json.RawMessage, error)
	DeleteAll(ctx context.Context) (json.RawMessage, error)
}

// bookService 通讯录业务实现
type bookService struct {
	contacts Contacts
	query    *query.Client
}

// NewBookService 构造函数
func NewBookService(contacts Contacts, q *query.Client) *bookService {
	return &bookService{contacts: contacts, query: q}
}

// List 分页列表，缓存 key: contacts:page={page}:limit={limit}
func (b *bookService) List(ctx context.Context, page, limit int) (*model.PageResult, error) {
	key := []string{keyContacts, "page=" + strconv.Itoa(page), "limit=" + strconv.Itoa(limit)}
	return b.fetchPage(ctx, key, func(ctx context.Context) (*model.PageResult, error) {
		return b.contacts.List(ctx, page, limit)
	})
}

// Search 分页搜索，缓存 key: contacts:search:q={term}:page={page}:limit={limit}
// 关键字为空白时直接返回空结果，不经过缓存
func (b *bookService) Search(ctx context.Context, page, limit int, term string) (*model.PageResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return b.contacts.Search(ctx, page, limit, term)
	}
	key := []string{keyContacts, "search", "q=" + url.QueryEscape(term),
		"page=" + strconv.Itoa(page), "limit=" + strconv.Itoa(limit)}
	return b.fetchPage(ctx, key, func(ctx context.Context) (*model.PageResult, error) {
		return b.contacts.Search(ctx, page, limit, term)
	})
}

// Get 单个联系人，缓存 key: contact:{id}
func (b *bookService) Get(ctx context.Context, id model.ContactID) (*model.Contact, error) {
	if strings.TrimSpace(id.String()) == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "contact id is required")
	}
	raw, err := b.query.Fetch(ctx, []string{keyContact, id.String()}, func(ctx context.Context) (json.RawMessage, error) {
		c, err := b.contacts.GetOne(ctx, id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(c)
	})
	if err != nil {
		return nil, err
	}
	var c model.Contact
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeCacheError, "decode cached contact %s", id)
	}
	return &c, nil
}

// Create 新建联系人，成功后失效全部列表
func (b *bookService) Create(ctx context.Context, form model.ContactForm) (json.RawMessage, error) {
	next, err := replayable(form)
	if err != nil {
		return nil, err
	}
	zap.L().Info("create contact", zap.String("name", form.Name))
	return b.query.Mutate(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return b.contacts.Create(ctx, next())
	}, []string{keyContacts})
}

// Update 更新联系人，成功后失效列表与该联系人
func (b *bookService) Update(ctx context.Context, id model.ContactID, form model.ContactForm) (json.RawMessage, error) {
	next, err := replayable(form)
	if err != nil {
		return nil, err
	}
	zap.L().Info("update contact", zap.String("id", id.String()))
	return b.query.Mutate(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return b.contacts.Update(ctx, id, next())
	}, []string{keyContacts}, []string{keyContact, id.String()})
}

// Delete 删除联系人，成功后失效列表与该联系人
func (b *bookService) Delete(ctx context.Context, id model.ContactID) (json.RawMessage, error) {
	zap.L().Info("delete contact", zap.String("id", id.String()))
	return b.query.Mutate(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return b.contacts.Delete(ctx, id)
	}, []string{keyContacts}, []string{keyContact, id.String()})
}

// DeleteAll 删除全部联系人，成功后失效所有缓存
func (b *bookService) DeleteAll(ctx context.Context) (json.RawMessage, error) {
	zap.L().Info("delete all contacts")
	return b.query.Mutate(ctx, b.contacts.DeleteAll, []string{keyContacts}, []string{keyContact})
}

func (b *bookService) fetchPage(ctx context.Context, key []string,
	fn func(ctx context.Context) (*model.PageResult, error)) (*model.PageResult, error) {
	raw, err := b.query.Fetch(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		page, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(page)
	})
	if err != nil {
		return nil, err
	}
	var page model.PageResult
	if err := json.Unmarshal(raw, &page); err != nil || page.Contact == nil {
		zap.L().Warn("cached page unreadable, returning empty page", zap.Strings("key", key), zap.Error(err))
		return model.EmptyPage(), nil
	}
	if page.Metadata.LastPage < 1 {
		page.Metadata.LastPage = model.DefaultMetadata().LastPage
	}
	return &page, nil
}

// replayable 先读出头像内容，使每次重试都能拿到完整的请求体
func replayable(form model.ContactForm) (func() model.ContactForm, error) {
	if form.Avatar == nil {
		return func() model.ContactForm { return form }, nil
	}
	data, err := io.ReadAll(form.Avatar)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeInvalidParam, "read avatar")
	}
	return func() model.ContactForm {
		f := form
		f.Avatar = bytes.NewReader(data)
		return f
	}, nil
}
