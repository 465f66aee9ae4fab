package request

// ListQueryRequest 通讯录首页查询参数
// 使用位置:
//   - handler/contact_book_handler.go: ContactBook
type ListQueryRequest struct {
	Page int    `form:"page" binding:"omitempty,min=1"`
	Q    string `form:"q" binding:"omitempty,max=100"`
}
