package handler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Trans 表单校验错误的翻译器，由 InitTrans 设置
var Trans ut.Translator

// 支持的语言及其默认翻译注册函数，未知语言按英文处理
var translations = map[string]func(*validator.Validate, ut.Translator) error{
	"en": en_translations.RegisterDefaultTranslations,
	"zh": zh_translations.RegisterDefaultTranslations,
}

// InitTrans 初始化翻译器，locale 取自 mainConfig.locale（"en" 或 "zh"）
func InitTrans(locale string) error {
	// Gin v1.9+ 中 binding.Validator 可能为 nil
	if binding.Validator == nil {
		binding.Validator = &defaultValidator{validator: validator.New()}
	}
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	// 错误提示里使用表单字段名，页面按字段名把提示放到对应输入框下方
	v.RegisterTagNameFunc(fieldName)

	enT := en.New()
	uni := ut.New(enT, enT, zh.New())
	trans, ok := uni.GetTranslator(locale)
	if !ok {
		return fmt.Errorf("uni.GetTranslator(%s) failed", locale)
	}
	register, ok := translations[locale]
	if !ok {
		register = en_translations.RegisterDefaultTranslations
	}
	if err := register(v, trans); err != nil {
		return fmt.Errorf("register %s translations: %w", locale, err)
	}
	Trans = trans
	return nil
}

// fieldName 依次取 form tag、json tag，都没有时用结构体字段名
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// RemoveTopStruct 去掉字段名里的结构体前缀
// "ContactFormRequest.name" -> "name"
func RemoveTopStruct(fields map[string]string) map[string]string {
	res := make(map[string]string, len(fields))
	for field, msg := range fields {
		res[field[strings.Index(field, ".")+1:]] = msg
	}
	return res
}

// defaultValidator 在 binding.Validator 为空时兜底
type defaultValidator struct {
	validator *validator.Validate
}

func (v *defaultValidator) ValidateStruct(obj any) error {
	return v.validator.Struct(obj)
}

func (v *defaultValidator) Engine() any {
	return v.validator
}
