package respond

import (
	"contact_book/internal/dto/request"
	"contact_book/internal/model"
)

// ContactListRespond 通讯录首页视图数据
// 使用位置:
//   - handler/contact_book_handler.go: ContactBook
type ContactListRespond struct {
	Contacts []model.Contact
	Query    string
	Page     int
	LastPage int
	Pages    []int
}

// HasPrev 是否有上一页
func (r ContactListRespond) HasPrev() bool { return r.Page > 1 }

// HasNext 是否有下一页
func (r ContactListRespond) HasNext() bool { return r.Page < r.LastPage }

func (r ContactListRespond) PrevPage() int { return r.Page - 1 }

func (r ContactListRespond) NextPage() int { return r.Page + 1 }

// NewContactListRespond 由分页结果构造视图数据，页码按 lastPage 生成
func NewContactListRespond(page *model.PageResult, current int, query string) ContactListRespond {
	last := page.Metadata.LastPage
	if last < 1 {
		last = 1
	}
	if current < 1 {
		current = 1
	}
	pages := make([]int, 0, last)
	for i := 1; i <= last; i++ {
		pages = append(pages, i)
	}
	return ContactListRespond{
		Contacts: page.Contact,
		Query:    query,
		Page:     current,
		LastPage: last,
		Pages:    pages,
	}
}

// ContactFormRespond 新建/编辑页视图数据
// 使用位置:
//   - handler/contact_book_handler.go: AddForm, EditForm, Create, Update
type ContactFormRespond struct {
	Title  string
	Action string
	ID     string
	Avatar string
	Form   request.ContactFormRequest
	Errors map[string]string
}

// ErrorRespond 错误页视图数据
type ErrorRespond struct {
	Status  int
	Code    int
	Message string
}
