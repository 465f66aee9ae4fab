// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层调用
// 接口设计遵循依赖倒置原则，便于测试和解耦
package service

import (
	"context"
	"encoding/json"

	"contact_book/internal/model"
)

// ContactsService 联系人访问层接口
// 把读写操作翻译成后端 REST 调用，读结果做归一化，写结果原样透传
type ContactsService interface {
	// List 分页获取联系人
	List(ctx context.Context, page, limit int) (*model.PageResult, error)
	// Search 按关键字分页搜索
	Search(ctx context.Context, page, limit int, term string) (*model.PageResult, error)
	// GetOne 获取单个联系人
	GetOne(ctx context.Context, id model.ContactID) (*model.Contact, error)
	// Create 创建联系人
	Create(ctx context.Context, form model.ContactForm) (json.RawMessage, error)
	// Update 更新联系人
	Update(ctx context.Context, id model.ContactID, form model.ContactForm) (json.RawMessage, error)
	// Delete 删除联系人
	Delete(ctx context.Context, id model.ContactID) (json.RawMessage, error)
	// DeleteAll 删除全部联系人
	DeleteAll(ctx context.Context) (json.RawMessage, error)
	// NormalizePage 把 data 字段归一化为分页结果
	NormalizePage(data json.RawMessage) (*model.PageResult, bool)
}

// ContactBookService 通讯录业务接口
// 带查询缓存的读写操作，页面与命令行都通过它访问联系人
type ContactBookService interface {
	// List 分页列表
	List(ctx context.Context, page, limit int) (*model.PageResult, error)
	// Search 分页搜索
	Search(ctx context.Context, page, limit int, term string) (*model.PageResult, error)
	// Get 单个联系人
	Get(ctx context.Context, id model.ContactID) (*model.Contact, error)
	// Create 新建联系人
	Create(ctx context.Context, form model.ContactForm) (json.RawMessage, error)
	// Update 更新联系人
	Update(ctx context.Context, id model.ContactID, form model.ContactForm) (json.RawMessage, error)
	// Delete 删除联系人
	Delete(ctx context.Context, id model.ContactID) (json.RawMessage, error)
	// DeleteAll 删除全部联系人
	DeleteAll(ctx context.Context) (json.RawMessage, error)
}
