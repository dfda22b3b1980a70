package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/reelview/internal/api"
	"github.com/user/reelview/internal/auth"
	"github.com/user/reelview/internal/config"
	"github.com/user/reelview/internal/handler"
	"github.com/user/reelview/internal/logging"
	"github.com/user/reelview/internal/repository"
	"github.com/user/reelview/internal/router"
	"github.com/user/reelview/internal/session"
	"github.com/user/reelview/internal/utils"
	"github.com/user/reelview/web"
	"gorm.io/gorm"
)

func main() {
	// 加载环境变量
	envErr := godotenv.Load()

	// 加载配置
	cfg := config.Load()

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		logging.Info().Msg("未找到 .env 文件，使用系统环境变量")
	}

	// Session 存储：默认 cookie，可选 Postgres
	opts := session.Options(cfg.SessionMaxAge, cfg.IsProduction())
	var (
		store sessions.Store
		db    *gorm.DB
	)
	switch cfg.SessionStore {
	case "postgres":
		var err error
		db, err = repository.InitDB(cfg.DatabaseURL)
		if err != nil {
			logging.Fatal().Err(err).Msg("数据库连接失败")
		}
		store = session.NewGormStore(db, cfg.AppSecret, opts)
		logging.Info().Msg("session 使用 Postgres 存储")
	default:
		store = session.NewCookieStore(cfg.AppSecret, opts)
	}

	// 初始化 Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	client := api.NewClient(api.Config{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		RateLimit: cfg.APIRateLimit,
		RateBurst: cfg.APIRateBurst,
	})
	gate := auth.NewAccessGate(auth.NewValidator(time.Now))

	// 初始化 Handler
	h := handler.NewHandler(cfg, client, session.Default, gate)

	r, err := router.New(router.Options{
		Handler:      h,
		SessionStore: store,
		AuthLimiter:  utils.NewRateLimiters(cfg.AuthRatePerMinute, 10*time.Minute),
		Assets:       web.FS,
		Production:   cfg.IsProduction(),
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("初始化路由失败")
	}

	// 配置 HTTP 服务器，写超时要覆盖一次后端调用
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   cfg.APITimeout + 10*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		logging.Info().Str("api", cfg.APIBaseURL).Msgf("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("正在关闭服务器...")

	// 5 秒超时上下文用于关闭过程
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("服务器强制关闭")
	}

	if db != nil {
		if err := repository.Close(db); err != nil {
			logging.Warn().Err(err).Msg("关闭数据库连接失败")
		}
	}

	logging.Info().Msg("服务器已退出")
}
