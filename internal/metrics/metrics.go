package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gacetachat_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gacetachat_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 执行编排指标
var (
	// PromptExecutionsTotal prompt 执行总数，按结果状态区分
	PromptExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gacetachat_prompt_executions_total",
			Help: "prompt 执行总数",
		},
		[]string{"state"},
	)

	// SessionFinalizationsTotal 会话状态汇总总数
	SessionFinalizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gacetachat_session_finalizations_total",
			Help: "会话状态汇总总数",
		},
		[]string{"status"},
	)

	// AdapterRequestDuration 检索/LLM 适配器耗时（秒）
	AdapterRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gacetachat_adapter_request_duration_seconds",
			Help:    "检索/LLM 适配器耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"doc_aware"},
	)
)

// 公报与问答指标
var (
	// GacetaDownloadsTotal 公报下载总数
	GacetaDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gacetachat_gaceta_downloads_total",
			Help: "公报下载总数",
		},
		[]string{"status"},
	)

	// DailyQueryRejectionsTotal 因每日上限被拒绝的问答数
	DailyQueryRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gacetachat_daily_query_rejections_total",
			Help: "因每日上限被拒绝的问答数",
		},
	)
)
