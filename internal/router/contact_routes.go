package router

import (
	"github.com/gin-gonic/gin"
)

// registerContactRoutes 注册通讯录页面路由
func (rt *Router) registerContactRoutes(r *gin.Engine) {
	h := rt.handlers.ContactBook

	r.GET("/", h.ContactBook) // 列表与搜索

	contacts := r.Group("/contacts")
	{
		contacts.GET("/add", h.AddForm)           // 新建页
		contacts.POST("/add", h.Create)           // 提交新建
		contacts.POST("/delete-all", h.DeleteAll) // 删除全部
		contacts.GET("/:id", h.EditForm)          // 编辑页
		contacts.POST("/:id", h.Update)           // 提交编辑
		contacts.POST("/:id/delete", h.Delete)    // 删除
	}
}
