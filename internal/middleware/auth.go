package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/reelview/internal/auth"
	"github.com/user/reelview/internal/logging"
	"github.com/user/reelview/internal/metrics"
	"github.com/user/reelview/internal/model"
	"github.com/user/reelview/internal/session"
	"github.com/user/reelview/internal/utils"
)

// IsAPIRequest JSON 接口请求（/api 前缀，或只接受 JSON）
func IsAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// LoadSession 可选登录中间件：有效登录态放入上下文，无效的视为游客（不清除）
func LoadSession(provider session.Provider, gate *auth.AccessGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := provider(c).Get()
		if !gate.Authorized(sess) {
			sess = session.Session{}
		}
		session.Attach(c, sess)
		c.Next()
	}
}

// RequireSession 必须登录中间件
// token 缺失、无法解析或已过期时清除登录态，页面请求跳转登录页并带上回跳地址
func RequireSession(provider session.Provider, gate *auth.AccessGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		store := provider(c)
		sess := store.Get()

		if gate.Check(sess) == auth.StateAuthorized {
			metrics.GateDecisions.WithLabelValues("access", "authorized").Inc()
			session.Attach(c, sess)
			c.Next()
			return
		}

		metrics.GateDecisions.WithLabelValues("access", "unauthorized").Inc()
		if sess.HasToken() {
			// 过期 token 不再保留
			if err := store.Clear(); err != nil {
				logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("清除过期登录态失败")
			}
		}

		if IsAPIRequest(c) {
			utils.Unauthorized(c, "")
			c.Abort()
			return
		}
		// 只有 GET 页面值得回跳，表单提交直接去登录页
		target := auth.LoginPath
		if c.Request.Method == http.MethodGet {
			target = auth.LoginURL(c.Request.URL.RequestURI())
		}
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

// RequireRole 角色中间件，必须挂在 RequireSession 之后
// deny 负责渲染拒绝页面，为 nil 时输出纯文本
func RequireRole(gate *auth.AccessGate, role model.Role, deny gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := session.FromContext(c)
		if err == nil && gate.CanAccess(sess, role) {
			metrics.GateDecisions.WithLabelValues("role", "allowed").Inc()
			c.Next()
			return
		}

		metrics.GateDecisions.WithLabelValues("role", "denied").Inc()
		switch {
		case IsAPIRequest(c):
			utils.Forbidden(c, auth.AdminOnlyMessage)
		case deny != nil:
			deny(c)
		default:
			c.String(http.StatusForbidden, auth.AdminOnlyMessage)
		}
		c.Abort()
	}
}

// RateLimit 按客户端 IP 限速，用于登录和注册提交
func RateLimit(limiters *utils.RateLimiters, onLimited gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiters.Allow(utils.HashIP(c.ClientIP())) {
			c.Next()
			return
		}

		logging.Ctx(c.Request.Context()).Warn().Str("path", c.Request.URL.Path).Msg("请求过于频繁")
		if onLimited != nil && !IsAPIRequest(c) {
			onLimited(c)
		} else {
			utils.TooManyRequests(c, "")
		}
		c.Abort()
	}
}
