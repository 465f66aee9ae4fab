package request

import (
	"mime/multipart"

	"contact_book/internal/model"
)

// ContactFormRequest 新建/编辑联系人表单
// 使用位置:
//   - handler/contact_book_handler.go: Create, Update
type ContactFormRequest struct {
	Name     string                `form:"name" binding:"required"`
	Email    string                `form:"email"`
	Phone    string                `form:"phone"`
	Address  string                `form:"address"`
	Favorite bool                  `form:"favorite"`
	Avatar   *multipart.FileHeader `form:"avatarFile"`
}

// ToContactForm 转换为访问层表单，存在头像时打开上传文件
// 调用方负责调用返回的 close
func (r ContactFormRequest) ToContactForm() (model.ContactForm, func(), error) {
	form := model.ContactForm{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Address:  r.Address,
		Favorite: r.Favorite,
	}
	if r.Avatar == nil {
		return form, func() {}, nil
	}
	f, err := r.Avatar.Open()
	if err != nil {
		return model.ContactForm{}, func() {}, err
	}
	form.AvatarName = r.Avatar.Filename
	form.Avatar = f
	return form, func() { _ = f.Close() }, nil
}

// FromContact 用已有联系人填充编辑表单
func FromContact(c *model.Contact) ContactFormRequest {
	if c == nil {
		return ContactFormRequest{}
	}
	return ContactFormRequest{
		Name:     c.Name,
		Email:    c.Email,
		Phone:    c.Phone,
		Address:  c.Address,
		Favorite: c.Favorite,
	}
}
