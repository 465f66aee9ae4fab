package model

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strconv"
)

// AvatarFieldName 上传头像文件使用的表单字段名
const AvatarFieldName = "avatarFile"

// ContactForm 创建/更新联系人时提交的表单
// Avatar 为可选的头像文件内容，AvatarName 为原始文件名
type ContactForm struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	Favorite   bool
	AvatarName string
	Avatar     io.Reader
	Fields     map[string]string // 其它需要透传给后端的表单字段
}

// Encode 编码为 multipart/form-data 请求体
// 只读取 f，不修改调用方传入的表单
func (f ContactForm) Encode() (*bytes.Buffer, string, error) {
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)

	values := map[string]string{
		"name":     f.Name,
		"email":    f.Email,
		"phone":    f.Phone,
		"address":  f.Address,
		"favorite": strconv.FormatBool(f.Favorite),
	}
	extraKeys := make([]string, 0, len(f.Fields))
	for key := range f.Fields {
		if _, exists := values[key]; !exists {
			extraKeys = append(extraKeys, key)
		}
	}
	sort.Strings(extraKeys)

	for _, key := range []string{"name", "email", "phone", "address", "favorite"} {
		if err := w.WriteField(key, values[key]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", key, err)
		}
	}
	for _, key := range extraKeys {
		if err := w.WriteField(key, f.Fields[key]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", key, err)
		}
	}

	if f.Avatar != nil {
		name := f.AvatarName
		if name == "" {
			name = "avatar"
		}
		part, err := w.CreateFormFile(AvatarFieldName, name)
		if err != nil {
			return nil, "", fmt.Errorf("create avatar part: %w", err)
		}
		if _, err := io.Copy(part, f.Avatar); err != nil {
			return nil, "", fmt.Errorf("copy avatar: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, w.FormDataContentType(), nil
}
