package router

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/reelview/internal/handler"
	"github.com/user/reelview/internal/middleware"
	"github.com/user/reelview/internal/model"
	"github.com/user/reelview/internal/session"
	"github.com/user/reelview/internal/utils"
)

// Options 组装 gin 引擎所需的依赖
type Options struct {
	Handler      *handler.Handler
	SessionStore sessions.Store
	AuthLimiter  *utils.RateLimiters
	Assets       fs.FS // 包含 templates/ 和 static/
	Production   bool
}

// New 创建 gin 引擎：中间件、模板、静态文件和全部路由
func New(opts Options) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Security(opts.Production))
	r.Use(middleware.CORS(opts.Handler.Config.SiteUrl))

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.Use(sessions.Sessions(session.CookieName, opts.SessionStore))

	renderer, err := LoadTemplates(opts.Assets)
	if err != nil {
		return nil, err
	}
	r.HTMLRender = renderer

	static, err := fs.Sub(opts.Assets, "static")
	if err != nil {
		return nil, fmt.Errorf("静态资源目录不存在: %w", err)
	}
	r.StaticFS("/static", http.FS(static))

	RegisterRoutes(r, opts.Handler, opts.AuthLimiter)
	return r, nil
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler, authLimiter *utils.RateLimiters) {
	loadSession := middleware.LoadSession(h.Sessions, h.Gate)
	requireSession := middleware.RequireSession(h.Sessions, h.Gate)
	limit := middleware.RateLimit(authLimiter, h.RateLimited)

	// 健康检查
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(loadSession, h.NotFound)

	// ==================== 公开页面 ====================
	public := r.Group("", loadSession)
	{
		public.GET("/", h.Home)
		public.GET("/login", h.LoginPage)
		public.POST("/login", limit, h.Login)
		public.GET("/register", h.RegisterPage)
		public.POST("/register", limit, h.Register)
		public.GET("/logout", h.Logout)
		public.POST("/logout", h.Logout)
	}

	// ==================== 需要登录 ====================
	protected := r.Group("", requireSession)
	{
		protected.GET("/movies", h.Movies)
		protected.GET("/movie/:id", h.MovieDetail)
		protected.POST("/movie/:id/watchlist", h.AddToWatchlist)

		protected.GET("/review/new", h.ReviewNewPage)
		protected.POST("/review/new", h.ReviewCreate)

		protected.GET("/profile", h.Profile)
		protected.POST("/profile/reviews/:movieId/:reviewId", h.UpdateReview)
		protected.POST("/profile/reviews/:movieId/:reviewId/delete", h.DeleteReview)
		protected.POST("/profile/watchlist/:movieId/delete", h.RemoveFromWatchlist)

		protected.GET("/watchlist", h.Watchlist)
		protected.POST("/watchlist/:movieId/delete", h.RemoveFromWatchlist)
	}

	// ==================== 管理员 ====================
	admin := protected.Group("", middleware.RequireRole(h.Gate, model.RoleAdmin, h.Forbidden))
	{
		admin.GET("/movies/new", h.AddMoviePage)
		admin.POST("/movies/new", h.AddMovie)
	}

	// ==================== JSON API ====================
	api := r.Group("/api", requireSession)
	{
		api.GET("/movies", h.APIMovies)
		api.GET("/movies/:id/rating", h.APIMovieRating)
		api.GET("/watchlist", h.APIWatchlist)
		api.POST("/watchlist/:movieId", h.APIAddToWatchlist)
		api.DELETE("/watchlist/:movieId", h.APIRemoveFromWatchlist)
	}
}

// 所有页面模板
var pages = []string{
	"home", "movies", "movie", "movie_new", "review_new",
	"profile", "watchlist", "login", "register", "error",
}

// LoadTemplates 使用 multitemplate 加载模板，解决模板继承问题
// 每个页面由 layouts + partials + 页面本身组成
func LoadTemplates(assets fs.FS) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	for _, page := range pages {
		tmpl, err := template.New("base.html").Funcs(funcMap).ParseFS(assets,
			"templates/layouts/*.html",
			"templates/partials/*.html",
			"templates/pages/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("解析模板 %s 失败: %w", page, err)
		}
		r.Add(page+".html", tmpl)
	}

	return r, nil
}

// 模板函数
var funcMap = template.FuncMap{
	"dict": func(values ...interface{}) (map[string]interface{}, error) {
		if len(values)%2 != 0 {
			return nil, fmt.Errorf("invalid dict call")
		}
		dict := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings")
			}
			dict[key] = values[i+1]
		}
		return dict, nil
	},
	"default": func(defaultValue, value interface{}) interface{} {
		switch v := value.(type) {
		case string:
			if v == "" {
				return defaultValue
			}
		case int:
			if v == 0 {
				return defaultValue
			}
		case nil:
			return defaultValue
		}
		return value
	},
	"join": strings.Join,
	// rating 保留一位小数
	"rating": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	// stars 5 星评分，true 为点亮
	"stars": func(v float64) []bool {
		out := make([]bool, 5)
		for i := range out {
			out[i] = float64(i)+0.5 <= v
		}
		return out
	},
}
