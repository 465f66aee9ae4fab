package transport

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Envelope 后端统一响应结构 { data, message? }
type Envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// DecodeEnvelope 解析响应体
// 非 JSON 对象、data 缺失或为 null 时 Data 为 nil
func DecodeEnvelope(body []byte) Envelope {
	if !gjson.ValidBytes(body) {
		return Envelope{}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Envelope{}
	}
	var env Envelope
	if data := root.Get("data"); data.Exists() && data.Type != gjson.Null {
		env.Data = json.RawMessage(bytes.Clone([]byte(data.Raw)))
	}
	if msg := root.Get("message"); msg.Type == gjson.String {
		env.Message = msg.String()
	}
	return env
}

// ErrorMessage 从错误响应中提取 message 字段，不存在时返回空串
func ErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	msg := gjson.GetBytes(body, "message")
	if msg.Type != gjson.String {
		return ""
	}
	return msg.String()
}
