// Package api 后端 REST 接口客户端
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/user/reelview/internal/apperr"
	"github.com/user/reelview/internal/logging"
	"github.com/user/reelview/internal/metrics"
	"golang.org/x/time/rate"
)

// maxBodySize 单个响应体上限
const maxBodySize = 4 << 20

// Config 客户端配置
type Config struct {
	BaseURL    string
	Timeout    time.Duration // 单次请求超时
	RateLimit  float64       // 每秒请求数，<=0 不限速
	RateBurst  int
	HTTPClient *http.Client
}

// Client 后端 API 客户端
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]byte]
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		if cfg.RateBurst <= 0 {
			cfg.RateBurst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		limiter:    limiter,
		cb:         newBreaker("backend-api"),
	}
}

// newBreaker 连续失败 5 次或 1 分钟内失败率超过 60% 时熔断，30 秒后半开试探
func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[API] 熔断器状态变化")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		// 只有网络故障和 5xx 计入失败；4xx 和调用方取消都不是后端的问题
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return apperr.KindOf(err) != apperr.KindNetworkFailure
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// request 描述一次调用
type request struct {
	endpoint string // 指标标签
	method   string
	path     string
	token    string
	body     any
}

// do 发送请求并返回 2xx 响应体；其他情况转换为 apperr
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	start := time.Now()
	body, err := c.send(ctx, req)

	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
		if errors.Is(err, context.Canceled) {
			outcome = "canceled"
		}
	}
	metrics.APIRequests.WithLabelValues(req.endpoint, outcome).Inc()
	metrics.APIDuration.WithLabelValues(req.endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("endpoint", req.endpoint).Str("method", req.method).Str("path", req.path).Msg("[API] 请求失败")
	}
	return body, err
}

func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "请求过于频繁，请稍后重试", err)
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "服务暂时不可用，请稍后重试", err)
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, req request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if id := logging.RequestID(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "", fmt.Errorf("%s %s: %w", req.method, req.path, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "", fmt.Errorf("读取响应失败: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, statusError(resp.StatusCode, body)
}

// statusError 按状态码映射错误类型，并带上后端返回的 message
func statusError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}

	cause := fmt.Errorf("backend status %d", status)
	switch {
	case status == http.StatusUnauthorized:
		return apperr.Wrap(apperr.KindAuthInvalid, msg, cause)
	case status == http.StatusForbidden:
		return apperr.Wrap(apperr.KindPermissionDenied, msg, cause)
	case status == http.StatusNotFound:
		return apperr.Wrap(apperr.KindNotFound, msg, cause)
	case status >= 400 && status < 500:
		return apperr.Wrap(apperr.KindValidationFailure, msg, cause)
	default:
		// 5xx 的 message 不直接展示给用户
		return apperr.Wrap(apperr.KindNetworkFailure, "", cause)
	}
}
