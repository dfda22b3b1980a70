package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/reelview/internal/api"
	"github.com/user/reelview/internal/apperr"
	"github.com/user/reelview/internal/auth"
	"github.com/user/reelview/internal/config"
	"github.com/user/reelview/internal/logging"
	"github.com/user/reelview/internal/middleware"
	"github.com/user/reelview/internal/model"
	"github.com/user/reelview/internal/service"
	"github.com/user/reelview/internal/session"
	"github.com/user/reelview/internal/utils"
)

// Backend 后端 API，*api.Client 满足该接口
type Backend interface {
	service.MovieSource
	CreateMovie(ctx context.Context, token string, in api.MovieInput) error
	CreateReview(ctx context.Context, token, movieID string, in api.ReviewInput) error
	UpdateReview(ctx context.Context, token, movieID, reviewID string, in api.ReviewInput) error
	DeleteReview(ctx context.Context, token, movieID, reviewID string) error
	ListUserReviews(ctx context.Context, token, userID string) ([]model.Review, error)
	ListWatchlist(ctx context.Context, token, userID string) ([]model.WatchlistItem, error)
	AddToWatchlist(ctx context.Context, token, userID, movieID string) error
	RemoveFromWatchlist(ctx context.Context, token, userID, movieID string) error
	Register(ctx context.Context, in api.RegisterInput) (api.AuthResult, error)
	Login(ctx context.Context, in api.LoginInput) (api.AuthResult, error)
}

// Handler HTTP 处理器
type Handler struct {
	Config   *config.Config
	Backend  Backend
	Catalog  *service.Catalog
	Sessions session.Provider
	Gate     *auth.AccessGate
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, backend Backend, sessions session.Provider, gate *auth.AccessGate) *Handler {
	registerValidators()
	return &Handler{
		Config:   cfg,
		Backend:  backend,
		Catalog:  service.NewCatalog(backend),
		Sessions: sessions,
		Gate:     gate,
	}
}

// 闪现消息类型
const (
	flashSuccess = "success"
	flashError   = "error"
)

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	// 基础数据
	res := gin.H{
		"SiteName":  h.Config.SiteName,
		"SiteUrl":   h.Config.SiteUrl,
		"Path":      c.Request.URL.Path,
		"RequestID": logging.RequestID(c.Request.Context()),
	}

	// 注入用户信息，只有通过守卫的登录态才算数
	if sess, err := session.FromContext(c); err == nil && sess.User != nil {
		res["UserInfo"] = sess.User
		res["IsAdmin"] = auth.CanAccess(sess, model.RoleAdmin)
	}

	// 菜单高亮逻辑
	res["ActiveMenu"] = h.getActiveMenu(c.Request.URL.Path)

	if msgs := h.takeFlashes(c); len(msgs) > 0 {
		res["Flashes"] = msgs
	}

	// 合并传入的数据
	for k, v := range data {
		res[k] = v
	}

	return res
}

// getActiveMenu 根据路径判断当前高亮菜单
func (h *Handler) getActiveMenu(path string) string {
	switch {
	case path == "/":
		return "home"
	case path == "/movies/new":
		return "add_movie"
	case path == "/movies", strings.HasPrefix(path, "/movie/"):
		return "movies"
	case path == "/review/new":
		return "review"
	case path == "/watchlist":
		return "watchlist"
	case strings.HasPrefix(path, "/profile"):
		return "profile"
	default:
		return ""
	}
}

// Flash 闪现消息
type Flash struct {
	Kind    string
	Message string
}

func (h *Handler) flash(c *gin.Context, kind, message string) {
	s := sessions.Default(c)
	s.AddFlash(message, kind)
	if err := s.Save(); err != nil {
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("保存闪现消息失败")
	}
}

func (h *Handler) takeFlashes(c *gin.Context) []Flash {
	s := sessions.Default(c)
	var out []Flash
	for _, kind := range []string{flashSuccess, flashError} {
		for _, v := range s.Flashes(kind) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Kind: kind, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		_ = s.Save()
	}
	return out
}

// current 当前请求的登录态，由 RequireSession 放入
func (h *Handler) current(c *gin.Context) (session.Session, bool) {
	sess, err := session.FromContext(c)
	if err != nil || sess.User == nil || !sess.HasToken() {
		return session.Session{}, false
	}
	return sess, true
}

// fail 统一的错误出口
// 后端认证失败时清除登录态并回到登录页，其余错误按类型渲染错误页或 JSON
func (h *Handler) fail(c *gin.Context, err error) {
	logger := logging.Ctx(c.Request.Context())
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("请求处理失败")
	} else {
		logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("请求被拒绝")
	}

	if apperr.IsAuth(err) {
		if clearErr := h.Sessions(c).Clear(); clearErr != nil {
			logger.Warn().Err(clearErr).Msg("清除登录态失败")
		}
		if middleware.IsAPIRequest(c) {
			utils.Unauthorized(c, apperr.Message(err))
			return
		}
		target := auth.LoginPath
		if c.Request.Method == http.MethodGet {
			target = auth.LoginURL(c.Request.URL.RequestURI())
		}
		c.Redirect(http.StatusFound, target)
		return
	}

	if middleware.IsAPIRequest(c) {
		utils.Error(c, status, apperr.Message(err))
		return
	}
	h.renderError(c, status, apperr.Message(err))
}

// renderError 渲染错误页
func (h *Handler) renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", h.RenderData(c, gin.H{
		"Title":   http.StatusText(status) + " - " + h.Config.SiteName,
		"Status":  status,
		"Message": message,
	}))
}

// NotFound 404 页面
func (h *Handler) NotFound(c *gin.Context) {
	if middleware.IsAPIRequest(c) {
		utils.NotFound(c, "")
		return
	}
	h.renderError(c, http.StatusNotFound, "页面不存在")
}

// Forbidden 角色守卫的拒绝页面
func (h *Handler) Forbidden(c *gin.Context) {
	h.renderError(c, http.StatusForbidden, auth.AdminOnlyMessage)
}

// redirectBack 提交后回到来源页（只接受站内地址）
func (h *Handler) redirectBack(c *gin.Context, fallback string) {
	target := c.PostForm("redirect")
	if target == "" {
		target = fallback
	}
	c.Redirect(http.StatusSeeOther, auth.SafeRedirect(target))
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ==================== 公开页面 ====================

// Home 首页
func (h *Handler) Home(c *gin.Context) {
	data := gin.H{"Title": h.Config.SiteName + " - 发现好电影"}

	movies, err := h.Catalog.Movies(c.Request.Context())
	if err != nil {
		// 首页不因后端故障整体失败
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("首页加载电影失败")
		data["Error"] = apperr.Message(err)
	} else {
		data["Home"] = service.BuildHome(movies, 10)
	}

	c.HTML(http.StatusOK, "home.html", h.RenderData(c, data))
}
