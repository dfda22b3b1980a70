package handler

import (
	"errors"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/user/reelview/internal/api"
	"github.com/user/reelview/internal/apperr"
	"github.com/user/reelview/internal/normalize"
)

type loginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
	Redirect string `form:"redirect"`
}

type registerForm struct {
	Username        string `form:"username" binding:"notblank,max=32"`
	Email           string `form:"email" binding:"required,email"`
	Password        string `form:"password" binding:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
}

type reviewForm struct {
	MovieID string `form:"movie_id" binding:"required"`
	Rating  int    `form:"rating" binding:"required,min=1,max=5"`
	Text    string `form:"text" binding:"notblank,max=2000"`
}

type editReviewForm struct {
	Rating int    `form:"rating" binding:"required,min=1,max=5"`
	Text   string `form:"text" binding:"notblank,max=2000"`
}

type movieForm struct {
	Title       string `form:"title" binding:"notblank,max=200"`
	Genre       string `form:"genre"`
	ReleaseYear int    `form:"release_year" binding:"omitempty,min=1888,max=2100"`
	Director    string `form:"director"`
	Cast        string `form:"cast"`
	Synopsis    string `form:"synopsis"`
	PosterURL   string `form:"poster_url" binding:"omitempty,url"`
}

// toInput 逗号分隔的类型和演员拆分、去空白
func (f movieForm) toInput() api.MovieInput {
	return api.MovieInput{
		Title:       strings.TrimSpace(f.Title),
		Genre:       normalize.SplitList(f.Genre),
		ReleaseYear: f.ReleaseYear,
		Director:    strings.TrimSpace(f.Director),
		Cast:        normalize.SplitList(f.Cast),
		Synopsis:    strings.TrimSpace(f.Synopsis),
		PosterURL:   strings.TrimSpace(f.PosterURL),
	}
}

var registerOnce sync.Once

// registerValidators 注册自定义校验规则
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
				return strings.TrimSpace(fl.Field().String()) != ""
			})
		}
	})
}

// 字段名到中文提示
var fieldLabels = map[string]string{
	"Email":           "邮箱",
	"Password":        "密码",
	"ConfirmPassword": "确认密码",
	"Username":        "用户名",
	"MovieID":         "电影",
	"Rating":          "评分",
	"Text":            "评论内容",
	"Title":           "片名",
	"ReleaseYear":     "上映年份",
	"PosterURL":       "海报地址",
}

// bindForm 绑定并校验表单，失败时返回 ValidationFailure
func bindForm(c *gin.Context, obj any) error {
	err := c.ShouldBind(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("表单格式不正确", nil)
	}

	fields := make(map[string]string, len(verrs))
	var first string
	for _, fe := range verrs {
		msg := fieldMessage(fe)
		fields[fe.Field()] = msg
		if first == "" {
			first = msg
		}
	}
	return apperr.Validation(first, fields)
}

func fieldMessage(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required", "notblank":
		return label + "不能为空"
	case "email":
		return "请输入有效的邮箱地址"
	case "eqfield":
		return "两次输入的密码不一致"
	case "url":
		return label + "必须是有效的链接"
	case "min", "max":
		if fe.Field() == "Rating" {
			return "评分必须在 1 到 5 之间"
		}
		if fe.Field() == "Password" {
			return "密码至少 6 位"
		}
		return label + "超出允许范围"
	default:
		return label + "不合法"
	}
}

// fieldErrors 提取字段级错误，供模板在输入框旁展示
func fieldErrors(err error) map[string]string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Fields != nil {
		return e.Fields
	}
	return nil
}
