package constants

import "time"

const (
	DEFAULT_AVATAR     = "/public/images/blank-profile-picture.png" // 后端未返回头像时使用的占位图
	CONTACTS_BASE_PATH = "/api/v1/contacts"                          // 联系人 REST 接口前缀
	DEFAULT_PAGE_LIMIT = 10                                          // 列表默认每页条数
	FILE_MAX_SIZE      = 8 << 20                                     // 表单上传最大内存（字节）
	MAX_RESPONSE_SIZE  = 8 << 20                                     // 后端响应体读取上限（字节）
	REQUEST_ID_HEADER  = "X-Request-ID"                              // 请求链路 ID 头
	REFRESH_TIMEOUT    = 30 * time.Second                            // 后台刷新缓存的超时时间
)
