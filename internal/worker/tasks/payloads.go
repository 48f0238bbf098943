package tasks

// Task Types
const (
	TypeDownloadGaceta = "gaceta:download"
	TypeRunBatch       = "execution:run_batch"
	TypeDailyRun       = "gaceta:daily_run"
)

// DownloadGacetaPayload 公报下载任务载荷
// Date 为空表示下载哥斯达黎加时区的当日公报
type DownloadGacetaPayload struct {
	Date string `json:"date"` // YYYY-MM-DD
}

// RunBatchPayload 批量执行任务载荷
type RunBatchPayload struct {
	SessionID    string `json:"session_id"`
	ReExecuteAll bool   `json:"re_execute_all"`
}

// DailyRunPayload 每日调度任务载荷
// 下载当日公报并对预置模板执行计划内的 prompt 批次
type DailyRunPayload struct{}
