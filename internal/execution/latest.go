package execution

import "gacetachat/internal/template"

// LatestByPrompt 对日志做 latest-wins 折叠：按 prompt 取创建时间最新的一条
// 创建时间相同的以切片中靠后的为准（与按 created_at, id 排序读取配合使用）
// 纯函数，不依赖存储，便于单测
func LatestByPrompt(logs []Log) map[uint]Log {
	latest := make(map[uint]Log, len(logs))
	for _, l := range logs {
		prev, ok := latest[l.PromptID]
		if !ok || !l.CreatedAt.Before(prev.CreatedAt) {
			latest[l.PromptID] = l
		}
	}
	return latest
}

// AllExecuted 判断每个成员 prompt 的最新日志是否都为 EXECUTED
// 没有任何日志的 prompt 视为未执行
func AllExecuted(prompts []template.Prompt, latest map[uint]Log) bool {
	for _, p := range prompts {
		l, ok := latest[p.ID]
		if !ok || l.State != LogStateExecuted {
			return false
		}
	}
	return true
}
