package handler

import (
	"errors"
	"net/http"
	"sort"

	"contact_book/internal/dto/respond"
	"contact_book/internal/view"
	"contact_book/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ResponseData 统一 JSON 响应结构体
type ResponseData struct {
	Code int `json:"code"`           // 业务响应状态码
	Msg  any `json:"msg"`            // 提示信息
	Data any `json:"data,omitempty"` // 数据
}

// HandleSuccess 返回成功响应
func HandleSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": errorx.CodeSuccess,
		"msg":  "success",
		"data": data,
	})
}

// HandleError 通用错误处理方法
// 根据错误类型选择 HTTP 状态码：参数错误 400，后端 404 为 404，其余后端错误 502，未知错误 500
// 浏览器请求渲染错误页（404 渲染 not-found 页），Accept: application/json 的请求返回 JSON
func HandleError(c *gin.Context, err error) {
	status, code, msg := classify(err)
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", fields...)
	} else {
		zap.L().Warn("request failed", fields...)
	}

	if wantsJSON(c) {
		c.JSON(status, gin.H{
			"code": code,
			"msg":  msg,
			"data": nil,
		})
		return
	}
	if status == http.StatusNotFound {
		c.HTML(status, view.NotFound, msg)
		return
	}
	c.HTML(status, view.Error, respond.ErrorRespond{Status: status, Code: code, Message: msg})
}

// HandleParamError 处理查询参数绑定错误（带 validator 翻译支持）
func HandleParamError(c *gin.Context, err error) {
	msgs := ParamErrors(err)
	zap.L().Warn("param bind error", zap.Any("fields", msgs), zap.Error(err))
	if wantsJSON(c) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": errorx.ErrInvalidParam.Code,
			"msg":  msgs,
			"data": nil,
		})
		return
	}
	fields := make([]string, 0, len(msgs))
	for field := range msgs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	message := msgs[fields[0]]
	c.HTML(http.StatusBadRequest, view.Error, respond.ErrorRespond{
		Status:  http.StatusBadRequest,
		Code:    errorx.ErrInvalidParam.Code,
		Message: message,
	})
}

// ParamErrors 把参数错误转换为 字段名 -> 提示 的映射
// validator.ValidationErrors 会被翻译；其它错误（如类型不匹配）归到 "form" 字段
func ParamErrors(err error) map[string]string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && Trans != nil {
		// 翻译后去除结构体名前缀，提升用户体验
		return RemoveTopStruct(validationErrs.Translate(Trans))
	}
	return map[string]string{"form": errorx.ErrInvalidParam.Msg}
}

func classify(err error) (status int, code int, msg string) {
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		switch codeErr.Code {
		case errorx.CodeInvalidParam:
			return http.StatusBadRequest, codeErr.Code, codeErr.Msg
		case errorx.CodeNotFound:
			return http.StatusNotFound, codeErr.Code, codeErr.Msg
		}
	}

	var reqErr *errorx.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.Status == http.StatusNotFound:
			return http.StatusNotFound, errorx.CodeNotFound, reqErr.Error()
		case reqErr.Status == 0:
			return http.StatusBadGateway, errorx.CodeUpstream, "contacts service unreachable"
		default:
			return http.StatusBadGateway, errorx.CodeUpstream, reqErr.Error()
		}
	}

	return http.StatusInternalServerError, errorx.ErrServerBusy.Code, errorx.ErrServerBusy.Msg
}

func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}
