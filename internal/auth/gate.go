package auth

import (
	"net/url"
	"strings"

	"github.com/user/reelview/internal/model"
	"github.com/user/reelview/internal/session"
)

// GateState 路由守卫状态
type GateState int

const (
	StateChecking GateState = iota
	StateAuthorized
	StateUnauthorized
)

func (s GateState) String() string {
	switch s {
	case StateAuthorized:
		return "authorized"
	case StateUnauthorized:
		return "unauthorized"
	default:
		return "checking"
	}
}

// LoginPath 登录入口
const LoginPath = "/login"

// AdminOnlyMessage 角色守卫拒绝时展示的文案
const AdminOnlyMessage = "访问被拒绝：仅限管理员。"

// AccessGate 受保护页面的守卫，token 无效或过期一律拒绝，不尝试续期
type AccessGate struct {
	validator *Validator
}

// NewAccessGate 创建守卫
func NewAccessGate(v *Validator) *AccessGate {
	return &AccessGate{validator: v}
}

// Check 从 checking 推进到终态
func (g *AccessGate) Check(sess session.Session) GateState {
	if !sess.HasToken() || !g.validator.IsValid(sess.Token) {
		return StateUnauthorized
	}
	return StateAuthorized
}

// Authorized 便捷判断
func (g *AccessGate) Authorized(sess session.Session) bool {
	return g.Check(sess) == StateAuthorized
}

// CanAccess 角色判断：无用户、token 无效或角色不符都拒绝
func (g *AccessGate) CanAccess(sess session.Session, required model.Role) bool {
	if !g.Authorized(sess) {
		return false
	}
	return CanAccess(sess, required)
}

// CanAccess 仅比较用户角色，调用方须保证 sess 已通过 AccessGate
func CanAccess(sess session.Session, required model.Role) bool {
	if sess.User == nil {
		return false
	}
	return sess.User.Role == required
}

// LoginURL 构造带回跳地址的登录链接
func LoginURL(requested string) string {
	target := SafeRedirect(requested)
	if target == "/" {
		return LoginPath
	}
	return LoginPath + "?redirect=" + url.QueryEscape(target)
}

// SafeRedirect 只允许站内相对路径，防止开放重定向
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return target
}
