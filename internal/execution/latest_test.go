package execution

import (
	"testing"
	"time"

	"gacetachat/internal/template"

	"github.com/stretchr/testify/require"
)

func TestLatestByPrompt(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	respA := "resp-a"
	respB := "resp-b"

	logs := []Log{
		{ID: "l1", PromptID: 1, State: LogStateFailed, CreatedAt: base},
		{ID: "l2", PromptID: 1, State: LogStateExecuted, ResponseID: &respA, CreatedAt: base.Add(time.Minute)},
		{ID: "l3", PromptID: 2, State: LogStateExecuted, ResponseID: &respB, CreatedAt: base},
	}

	latest := LatestByPrompt(logs)
	require.Len(t, latest, 2)
	require.Equal(t, "l2", latest[1].ID)
	require.Equal(t, LogStateExecuted, latest[1].State)
	require.Equal(t, "l3", latest[2].ID)
}

func TestLatestByPrompt_TieTakesLaterInSlice(t *testing.T) {
	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	logs := []Log{
		{ID: "first", PromptID: 1, State: LogStateFailed, CreatedAt: ts},
		{ID: "second", PromptID: 1, State: LogStateExecuted, CreatedAt: ts},
	}

	latest := LatestByPrompt(logs)
	require.Equal(t, "second", latest[1].ID, "创建时间相同时应取切片中靠后的日志")
}

func TestAllExecuted(t *testing.T) {
	prompts := []template.Prompt{{ID: 1}, {ID: 2}}

	executed := map[uint]Log{
		1: {PromptID: 1, State: LogStateExecuted},
		2: {PromptID: 2, State: LogStateExecuted},
	}
	require.True(t, AllExecuted(prompts, executed))

	oneFailed := map[uint]Log{
		1: {PromptID: 1, State: LogStateExecuted},
		2: {PromptID: 2, State: LogStateFailed},
	}
	require.False(t, AllExecuted(prompts, oneFailed))

	// 没有日志的 prompt 视为未执行
	missing := map[uint]Log{
		1: {PromptID: 1, State: LogStateExecuted},
	}
	require.False(t, AllExecuted(prompts, missing))

	// 空成员集合视为全部完成
	require.True(t, AllExecuted(nil, map[uint]Log{}))
}
