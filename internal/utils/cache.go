package utils

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiters 按客户端分配的令牌桶，闲置超过 idle 后自动回收
type RateLimiters struct {
	mu    sync.Mutex
	store *cache.Cache
	limit rate.Limit
	burst int
	idle  time.Duration
}

// NewRateLimiters perMinute 为每分钟允许次数，<=0 表示不限
func NewRateLimiters(perMinute int, idle time.Duration) *RateLimiters {
	limit := rate.Inf
	burst := 0
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
		burst = perMinute
	}
	return &RateLimiters{
		store: cache.New(idle, 2*idle),
		limit: limit,
		burst: burst,
		idle:  idle,
	}
}

// Allow 消耗一个令牌，返回是否放行
func (r *RateLimiters) Allow(key string) bool {
	if r.limit == rate.Inf {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var limiter *rate.Limiter
	if v, ok := r.store.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(r.limit, r.burst)
	}
	// 每次访问都续期
	r.store.Set(key, limiter, r.idle)
	return limiter.Allow()
}

// Len 当前跟踪的客户端数量
func (r *RateLimiters) Len() int {
	return r.store.ItemCount()
}
