// Package handler 提供 HTTP 请求处理器
// 本文件处理通讯录页面请求：列表/搜索、新建、编辑、删除
package handler

import (
	"net/http"
	"strings"

	"contact_book/internal/dto/request"
	"contact_book/internal/dto/respond"
	"contact_book/internal/model"
	"contact_book/internal/service"
	"contact_book/internal/view"
	"contact_book/pkg/constants"
	"contact_book/pkg/errorx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContactBookHandler 通讯录页面处理器
type ContactBookHandler struct {
	svc   service.ContactBookService
	limit int
}

// NewContactBookHandler 构造函数，limit 为每页条数
func NewContactBookHandler(svc service.ContactBookService, limit int) *ContactBookHandler {
	if limit < 1 {
		limit = constants.DEFAULT_PAGE_LIMIT
	}
	return &ContactBookHandler{svc: svc, limit: limit}
}

// ContactBook 通讯录首页
// GET /?page=1&q=xxx
// q 非空白时走搜索，否则分页列表
func (h *ContactBookHandler) ContactBook(c *gin.Context) {
	var req request.ListQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	term := strings.TrimSpace(req.Q)

	var (
		result *model.PageResult
		err    error
	)
	if term != "" {
		result, err = h.svc.Search(c.Request.Context(), page, h.limit, term)
	} else {
		result, err = h.svc.List(c.Request.Context(), page, h.limit)
	}
	if err != nil {
		HandleError(c, err)
		return
	}
	c.HTML(http.StatusOK, view.List, respond.NewContactListRespond(result, page, term))
}

// AddForm 新建联系人页面
// GET /contacts/add
func (h *ContactBookHandler) AddForm(c *gin.Context) {
	c.HTML(http.StatusOK, view.Form, addFormRespond(request.ContactFormRequest{}, nil))
}

// Create 提交新建表单，成功后跳转首页
// POST /contacts/add  (multipart/form-data)
func (h *ContactBookHandler) Create(c *gin.Context) {
	var req request.ContactFormRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, view.Form, addFormRespond(req, ParamErrors(err)))
		return
	}
	form, closeAvatar, err := req.ToContactForm()
	if err != nil {
		HandleError(c, errorx.Wrap(err, errorx.CodeInvalidParam, "无法读取头像文件"))
		return
	}
	defer closeAvatar()

	if _, err := h.svc.Create(c.Request.Context(), form); err != nil {
		if rejected(err) {
			c.HTML(http.StatusUnprocessableEntity, view.Form,
				addFormRespond(req, map[string]string{"form": err.Error()}))
			return
		}
		HandleError(c, err)
		return
	}
	zap.L().Info("contact created", zap.String("name", req.Name))
	c.Redirect(http.StatusSeeOther, "/")
}

// EditForm 编辑联系人页面，后端返回 404 时渲染 not-found 页
// GET /contacts/:id
func (h *ContactBookHandler) EditForm(c *gin.Context) {
	id := model.ContactID(c.Param("id"))
	contact, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.HTML(http.StatusOK, view.Form, editFormRespond(id, contact.Avatar, request.FromContact(contact), nil))
}

// Update 提交编辑表单，成功后跳转首页
// POST /contacts/:id  (multipart/form-data)
func (h *ContactBookHandler) Update(c *gin.Context) {
	id := model.ContactID(c.Param("id"))
	var req request.ContactFormRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, view.Form, editFormRespond(id, "", req, ParamErrors(err)))
		return
	}
	form, closeAvatar, err := req.ToContactForm()
	if err != nil {
		HandleError(c, errorx.Wrap(err, errorx.CodeInvalidParam, "无法读取头像文件"))
		return
	}
	defer closeAvatar()

	if _, err := h.svc.Update(c.Request.Context(), id, form); err != nil {
		if rejected(err) {
			c.HTML(http.StatusUnprocessableEntity, view.Form,
				editFormRespond(id, "", req, map[string]string{"form": err.Error()}))
			return
		}
		HandleError(c, err)
		return
	}
	zap.L().Info("contact updated", zap.String("id", id.String()))
	c.Redirect(http.StatusSeeOther, "/")
}

// Delete 删除联系人，成功后跳转首页
// POST /contacts/:id/delete
func (h *ContactBookHandler) Delete(c *gin.Context) {
	id := model.ContactID(c.Param("id"))
	if _, err := h.svc.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// DeleteAll 删除全部联系人，成功后跳转首页
// POST /contacts/delete-all
func (h *ContactBookHandler) DeleteAll(c *gin.Context) {
	if _, err := h.svc.DeleteAll(c.Request.Context()); err != nil {
		HandleError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// NotFound 兜底路由
func NotFound(c *gin.Context) {
	if wantsJSON(c) {
		c.JSON(http.StatusNotFound, gin.H{
			"code": errorx.CodeNotFound,
			"msg":  "not found",
			"data": nil,
		})
		return
	}
	c.HTML(http.StatusNotFound, view.NotFound, "")
}

func addFormRespond(form request.ContactFormRequest, errs map[string]string) respond.ContactFormRespond {
	return respond.ContactFormRespond{
		Title:  "Add contact",
		Action: "/contacts/add",
		Form:   form,
		Errors: errs,
	}
}

func editFormRespond(id model.ContactID, avatar string, form request.ContactFormRequest,
	errs map[string]string) respond.ContactFormRespond {
	return respond.ContactFormRespond{
		Title:  "Edit contact",
		Action: "/contacts/" + id.String(),
		ID:     id.String(),
		Avatar: avatar,
		Form:   form,
		Errors: errs,
	}
}

// rejected 后端拒绝了表单内容（4xx，404 除外），应回到表单展示原因
func rejected(err error) bool {
	status := errorx.StatusOf(err)
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError && status != http.StatusNotFound
}
