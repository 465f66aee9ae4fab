// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"contact_book/internal/config"
	"contact_book/internal/dao/cache"
	"contact_book/internal/infrastructure/metrics"
	"contact_book/internal/query"
	"contact_book/internal/service/book"
	"contact_book/internal/service/contacts"
	"contact_book/internal/transport"
)

// Services 聚合所有 Service 实例
// 作为依赖注入的入口，Handler 层通过它访问各个 Service
type Services struct {
	Contacts ContactsService    // 联系人访问层
	Book     ContactBookService // 带缓存的通讯录业务
}

// NewServices 创建并注入所有 Service 实例
// 依赖注入流程：
//  1. 由 apiConfig 创建 transport 客户端
//  2. 创建联系人访问层，注入 transport 与降级观测
//  3. 创建查询缓存与通讯录业务
//
// store 为缓存存储，recorder 可为 nil
func NewServices(conf *config.Config, store cache.AsyncCacheService, recorder *metrics.Recorder) *Services {
	client := transport.New(transport.Options{
		BaseURL:  conf.ApiConfig.BaseURL,
		Timeout:  conf.ApiConfig.Timeout,
		Observer: recorder,
	})
	contactsSvc := contacts.NewContactsService(client,
		contacts.WithBasePath(conf.ApiConfig.BasePath),
		contacts.WithDefaultAvatar(conf.ApiConfig.DefaultAvatar),
		contacts.WithDefaultLimit(conf.ApiConfig.DefaultLimit),
		contacts.WithDegradedObserver(recorder),
	)
	q := query.New(store, query.OptionsFromConfig(conf.QueryConfig), recorder)

	return &Services{
		Contacts: contactsSvc,
		Book:     book.NewBookService(contactsSvc, q),
	}
}
