// Package metrics Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests 后端 API 调用次数
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelview_api_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok / network_failure / not_found ...
	)

	// APIDuration 后端 API 耗时
	APIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelview_api_request_duration_seconds",
			Help:    "Duration of backend API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// CircuitBreakerState 熔断器状态：0 关闭，1 半开，2 打开
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reelview_circuit_breaker_state",
			Help: "Backend circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// GateDecisions 路由守卫结果
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelview_gate_decisions_total",
			Help: "Access and role gate decisions",
		},
		[]string{"gate", "result"},
	)

	// NormalizeSkipped 因缺少 _id 被跳过的记录
	NormalizeSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelview_normalize_skipped_total",
			Help: "Backend records skipped during normalization",
		},
		[]string{"entity"},
	)
)
