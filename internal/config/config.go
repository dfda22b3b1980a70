package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env       string
	AppSecret string
	Port      string
	SiteName  string
	SiteUrl   string

	// 后端 API
	APIBaseURL   string
	APITimeout   time.Duration
	APIRateLimit float64
	APIRateBurst int

	// Session
	SessionStore  string // cookie / postgres
	SessionMaxAge time.Duration
	DatabaseURL   string

	// 登录/注册每个 IP 每分钟允许的提交次数
	AuthRatePerMinute int

	LogLevel  string
	LogFormat string
}

// Load 加载配置
func Load() *Config {
	timeoutSec, _ := strconv.Atoi(getEnv("API_TIMEOUT_SECONDS", "15"))
	rateLimit, _ := strconv.ParseFloat(getEnv("API_RATE_LIMIT", "20"), 64)
	rateBurst, _ := strconv.Atoi(getEnv("API_RATE_BURST", "40"))
	maxAgeDays, _ := strconv.Atoi(getEnv("SESSION_MAX_AGE_DAYS", "7"))
	authRate, _ := strconv.Atoi(getEnv("AUTH_RATE_PER_MINUTE", "10"))

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "reelview")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", "your-secret-key-change-in-production")

	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	return &Config{
		Env:       getEnv("APP_ENV", "development"),
		AppSecret: appSecret,
		Port:      getEnv("PORT", "5005"),
		SiteName:  getEnv("SITE_NAME", "Reelview"),
		SiteUrl:   getEnv("SITE_URL", "http://localhost:5005"),

		APIBaseURL:   getEnv("API_BASE_URL", "https://moive-review-platform-backend-3.onrender.com/api"),
		APITimeout:   time.Duration(timeoutSec) * time.Second,
		APIRateLimit: rateLimit,
		APIRateBurst: rateBurst,

		SessionStore:  getEnv("SESSION_STORE", "cookie"),
		SessionMaxAge: time.Duration(maxAgeDays) * 24 * time.Hour,
		DatabaseURL:   getEnv("DATABASE_URL", dbURL),

		AuthRatePerMinute: authRate,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
