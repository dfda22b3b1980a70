package session

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"gorm.io/gorm"
)

// CookieName 会话 cookie 名
const CookieName = "reelview_session"

// Options 会话 cookie 属性
func Options(maxAge time.Duration, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure, // 非 HTTPS 环境必须为 false
		SameSite: http.SameSiteLaxMode,
	}
}

// NewCookieStore 登录态整体保存在签名 cookie 中
func NewCookieStore(secret string, opts sessions.Options) sessions.Store {
	store := cookie.NewStore([]byte(secret))
	store.Options(opts)
	return store
}

// NewGormStore 登录态保存在 Postgres，cookie 中只有会话 ID，过期记录定时清理
func NewGormStore(db *gorm.DB, secret string, opts sessions.Options) sessions.Store {
	store := gormsessions.NewStore(db, true, []byte(secret))
	store.Options(opts)
	return store
}
