package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ContactID 联系人标识，由后端分配，可能是字符串或数字
// 统一按文本保存，序列化时纯数字输出为 JSON number
type ContactID string

// UnmarshalJSON 接受 JSON 字符串或数字
func (id *ContactID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ContactID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ContactID(n.String())
	return nil
}

// MarshalJSON 纯整数输出为 number，其余输出为 string
func (id ContactID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ContactID) String() string {
	return string(id)
}

// Contact 联系人
// 已知字段显式声明，后端其余字段（时间戳等）原样保存在 Extra 中并在序列化时回写
type Contact struct {
	ID       ContactID
	Name     string
	Email    string
	Phone    string
	Address  string
	Favorite bool
	Avatar   string
	Extra    map[string]json.RawMessage
}

var knownContactFields = map[string]struct{}{
	"id": {}, "name": {}, "email": {}, "phone": {}, "address": {}, "favorite": {}, "avatar": {},
}

// UnmarshalJSON 宽松解析：字段类型不符时按零值处理，不让单个字段拖垮整条记录
func (c *Contact) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*c = Contact{}
	for key, raw := range fields {
		switch key {
		case "id":
			_ = c.ID.UnmarshalJSON(raw)
		case "name":
			c.Name = looseString(raw)
		case "email":
			c.Email = looseString(raw)
		case "phone":
			c.Phone = looseString(raw)
		case "address":
			c.Address = looseString(raw)
		case "favorite":
			c.Favorite = looseBool(raw)
		case "avatar":
			c.Avatar = looseString(raw)
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]json.RawMessage)
			}
			c.Extra[key] = raw
		}
	}
	return nil
}

// MarshalJSON 合并 Extra 与已知字段
func (c Contact) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+len(knownContactFields))
	for key, raw := range c.Extra {
		if _, known := knownContactFields[key]; known {
			continue
		}
		out[key] = raw
	}
	out["id"] = c.ID
	out["name"] = c.Name
	out["avatar"] = c.Avatar
	if c.Email != "" {
		out["email"] = c.Email
	}
	if c.Phone != "" {
		out["phone"] = c.Phone
	}
	if c.Address != "" {
		out["address"] = c.Address
	}
	if c.Favorite {
		out["favorite"] = true
	}
	return json.Marshal(out)
}

// Metadata 分页元数据
// 已知字段按整数宽松解析，其余字段原样保存在 Extra 中并在序列化时回写
type Metadata struct {
	TotalRecords int
	FirstPage    int
	LastPage     int
	Page         int
	Limit        int
	Extra        map[string]json.RawMessage
}

// UnmarshalJSON 数字或数字字符串都接受，类型不符的已知字段按零值处理
func (m *Metadata) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*m = Metadata{}
	for key, raw := range fields {
		switch key {
		case "totalRecords":
			m.TotalRecords = looseInt(raw)
		case "firstPage":
			m.FirstPage = looseInt(raw)
		case "lastPage":
			m.LastPage = looseInt(raw)
		case "page":
			m.Page = looseInt(raw)
		case "limit":
			m.Limit = looseInt(raw)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]json.RawMessage)
			}
			m.Extra[key] = raw
		}
	}
	return nil
}

// MarshalJSON lastPage 总是输出，其余已知字段为 0 时省略
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+5)
	for key, raw := range m.Extra {
		out[key] = raw
	}
	out["lastPage"] = m.LastPage
	for key, v := range map[string]int{
		"totalRecords": m.TotalRecords,
		"firstPage":    m.FirstPage,
		"page":         m.Page,
		"limit":        m.Limit,
	} {
		if v != 0 {
			out[key] = v
		} else {
			delete(out, key)
		}
	}
	return json.Marshal(out)
}

// DefaultMetadata 后端缺失或返回异常元数据时使用
func DefaultMetadata() Metadata {
	return Metadata{LastPage: 1}
}

// PageResult 列表/搜索结果
type PageResult struct {
	Contact  []Contact `json:"contact"`
	Metadata Metadata  `json:"metadata"`
}

// EmptyPage 返回空结果 { contact: [], metadata: { lastPage: 1 } }
func EmptyPage() *PageResult {
	return &PageResult{
		Contact:  []Contact{},
		Metadata: DefaultMetadata(),
	}
}

func looseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func looseInt(raw json.RawMessage) int {
	n, err := strconv.Atoi(looseString(raw))
	if err != nil {
		return 0
	}
	return n
}

func looseBool(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	switch strings.ToLower(looseString(raw)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
