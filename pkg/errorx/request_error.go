package errorx

import (
	"errors"
	"fmt"
)

// noDetail 后端未提供 message 字段时使用的兜底文案
const noDetail = "No detail"

// RequestError 请求后端 API 失败时返回的错误
// Status 为 HTTP 状态码；网络层失败（DNS、超时、连接重置）时为 0，原始错误通过 Unwrap 暴露
type RequestError struct {
	Status int    // HTTP 状态码，网络失败为 0
	Detail string // 后端返回的 message 字段
	Msg    string // 面向调用方的完整描述
	cause  error
}

func (e *RequestError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

func (e *RequestError) Unwrap() error {
	return e.cause
}

// NewRequestError 根据状态码和后端 message 构造错误
// 消息格式: "request failed with status 404: Contact not found"
func NewRequestError(status int, detail string) *RequestError {
	text := detail
	if text == "" {
		text = noDetail
	}
	return &RequestError{
		Status: status,
		Detail: detail,
		Msg:    fmt.Sprintf("request failed with status %d: %s", status, text),
	}
}

// WrapRequestError 包装网络层错误，Status 为 0
func WrapRequestError(err error, msg string) *RequestError {
	return &RequestError{
		Msg:   msg,
		cause: err,
	}
}

// StatusOf 返回错误链中 RequestError 的状态码
// 网络失败返回 0，非 RequestError 返回 -1
func StatusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return -1
}
