package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/reelview/internal/api"
	"github.com/user/reelview/internal/apperr"
	"github.com/user/reelview/internal/auth"
	"github.com/user/reelview/internal/logging"
	"github.com/user/reelview/internal/model"
)

// 登录/注册成功后的默认落地页
const afterLoginPath = "/movies"

// ==================== 认证页面 ====================

// LoginPage 登录页
func (h *Handler) LoginPage(c *gin.Context) {
	redirect := c.Query("redirect")
	// 如果已经登录，直接跳转
	if _, ok := h.current(c); ok {
		c.Redirect(http.StatusFound, h.landing(redirect))
		return
	}
	h.renderLogin(c, http.StatusOK, gin.H{"Redirect": redirect})
}

// Login 登录提交
func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := bindForm(c, &form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, gin.H{
			"Redirect": form.Redirect,
			"Email":    form.Email,
			"Error":    apperr.Message(err),
			"Fields":   fieldErrors(err),
		})
		return
	}

	res, err := h.Backend.Login(c.Request.Context(), api.LoginInput{
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	})
	if err != nil {
		status, msg := authFailure(err, "邮箱或密码错误")
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("登录失败")
		h.renderLogin(c, status, gin.H{
			"Redirect": form.Redirect,
			"Email":    form.Email,
			"Error":    msg,
		})
		return
	}

	if err := h.Sessions(c).Set(res.Token, res.User); err != nil {
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("保存登录态失败")
		h.renderLogin(c, http.StatusInternalServerError, gin.H{
			"Redirect": form.Redirect,
			"Email":    form.Email,
			"Error":    "登录失败，请重试",
		})
		return
	}

	logging.Ctx(c.Request.Context()).Info().Str("user_id", res.User.ID).Msg("用户登录")
	c.Redirect(http.StatusSeeOther, h.landing(form.Redirect))
}

// RegisterPage 注册页
func (h *Handler) RegisterPage(c *gin.Context) {
	if _, ok := h.current(c); ok {
		c.Redirect(http.StatusFound, afterLoginPath)
		return
	}
	h.renderRegister(c, http.StatusOK, nil)
}

// Register 注册提交，新用户角色固定为 user
func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := bindForm(c, &form); err != nil {
		h.renderRegister(c, http.StatusBadRequest, gin.H{
			"Username": form.Username,
			"Email":    form.Email,
			"Error":    apperr.Message(err),
			"Fields":   fieldErrors(err),
		})
		return
	}

	res, err := h.Backend.Register(c.Request.Context(), api.RegisterInput{
		Username: strings.TrimSpace(form.Username),
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
		Role:     string(model.RoleUser),
	})
	if err != nil {
		status, msg := authFailure(err, "注册失败，请检查填写的信息")
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("注册失败")
		h.renderRegister(c, status, gin.H{
			"Username": form.Username,
			"Email":    form.Email,
			"Error":    msg,
		})
		return
	}

	if err := h.Sessions(c).Set(res.Token, res.User); err != nil {
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("保存登录态失败")
		h.renderRegister(c, http.StatusInternalServerError, gin.H{
			"Username": form.Username,
			"Email":    form.Email,
			"Error":    "注册成功但登录失败，请直接登录",
		})
		return
	}

	h.flash(c, flashSuccess, "注册成功，欢迎加入！")
	c.Redirect(http.StatusSeeOther, afterLoginPath)
}

// Logout 退出登录
func (h *Handler) Logout(c *gin.Context) {
	if err := h.Sessions(c).Clear(); err != nil {
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("清除登录态失败")
	}
	h.flash(c, flashSuccess, "已退出登录")
	c.Redirect(http.StatusSeeOther, auth.LoginPath)
}

// RateLimited 登录/注册过于频繁
func (h *Handler) RateLimited(c *gin.Context) {
	h.renderError(c, http.StatusTooManyRequests, "操作过于频繁，请稍后再试")
}

func (h *Handler) renderLogin(c *gin.Context, status int, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = "登录 - " + h.Config.SiteName
	c.HTML(status, "login.html", h.RenderData(c, data))
}

func (h *Handler) renderRegister(c *gin.Context, status int, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = "注册 - " + h.Config.SiteName
	c.HTML(status, "register.html", h.RenderData(c, data))
}

// landing 登录后的跳转地址，只接受站内路径
func (h *Handler) landing(redirect string) string {
	if redirect == "" {
		return afterLoginPath
	}
	target := auth.SafeRedirect(redirect)
	if target == "/" && redirect != "/" {
		return afterLoginPath
	}
	return target
}

// authFailure 登录/注册失败时的状态码和提示
// 后端 4xx 直接展示其消息（无消息时用 fallback），服务故障统一提示
func authFailure(err error, fallback string) (int, string) {
	switch apperr.KindOf(err) {
	case apperr.KindAuthInvalid, apperr.KindAuthExpired:
		return http.StatusUnauthorized, backendMessage(err, fallback)
	case apperr.KindValidationFailure, apperr.KindNotFound, apperr.KindPermissionDenied:
		return http.StatusBadRequest, backendMessage(err, fallback)
	default:
		return http.StatusBadGateway, apperr.Message(err)
	}
}

func backendMessage(err error, fallback string) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
