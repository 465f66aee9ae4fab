// Package view 通讯录页面模板，编译进二进制
package view

import (
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// 模板名称
const (
	List     = "list.tmpl"
	Form     = "form.tmpl"
	NotFound = "not_found.tmpl"
	Error    = "error.tmpl"
)

var funcs = template.FuncMap{
	"initial": func(name string) string {
		for _, r := range name {
			return string(r)
		}
		return "?"
	},
}

// Load 解析全部模板
func Load() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
}

// Must 解析全部模板，失败时 panic
func Must() *template.Template {
	return template.Must(Load())
}
