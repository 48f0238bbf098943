package execution

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"gacetachat/internal/gaceta"
	"gacetachat/internal/logger"
	"gacetachat/internal/qa"
	"gacetachat/internal/template"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console", "stderr"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type answerCall struct {
	query string
	doc   *qa.DocumentContext
}

// scriptedAnswerer 按查询内容触发失败或 panic 的测试适配器
type scriptedAnswerer struct {
	mu          sync.Mutex
	calls       []answerCall
	failSubstr  string
	panicSubstr string
	answerFor   func(query string) string
}

func (a *scriptedAnswerer) Answer(ctx context.Context, query string, doc *qa.DocumentContext, ov *qa.Overrides) (*qa.Result, error) {
	a.mu.Lock()
	a.calls = append(a.calls, answerCall{query: query, doc: doc})
	a.mu.Unlock()

	if a.panicSubstr != "" && strings.Contains(query, a.panicSubstr) {
		panic("boom: " + query)
	}
	if a.failSubstr != "" && strings.Contains(query, a.failSubstr) {
		return nil, qa.NewAdapterError("completion", fmt.Errorf("上游模型错误"))
	}

	answer := "answer: " + query
	if a.answerFor != nil {
		answer = a.answerFor(query)
	}
	return &qa.Result{
		RawPrompt: query,
		Answer:    answer,
		Sources:   []string{"gaceta-1-chunk-0"},
	}, nil
}

func setupEngineTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:engine_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&template.ContentTemplate{},
		&template.Prompt{},
		&gaceta.GacetaPDF{},
		&Session{},
		&Log{},
		&QueryResponse{},
	))
	return db
}

func boolPtr(v bool) *bool       { return &v }
func strPtr(v string) *string    { return &v }
func seedTemplate(t *testing.T, db *gorm.DB, prompts []template.PromptInput) *template.ContentTemplate {
	t.Helper()
	tmpl, err := template.NewService(db).CreateTemplate(context.Background(), "每日模板", "", prompts)
	require.NoError(t, err)
	return tmpl
}

func TestEngine_RunBatch_AllSuccess(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	answerer := &scriptedAnswerer{}
	engine := NewEngine(db, answerer)

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "headline", PromptText: "Summarize the headline news", DocAware: boolPtr(false)},
		{Name: "economy", PromptText: "Summarize the economy news", DocAware: boolPtr(false)},
	})

	sessionID, err := engine.CreateSession(ctx, nil, &tmpl.ID, nil)
	require.NoError(t, err)

	_, err = engine.RunBatch(ctx, sessionID, false)
	require.NoError(t, err)

	var session Session
	require.NoError(t, db.First(&session, "id = ?", sessionID).Error)
	require.Equal(t, StatusExecuted, session.Status)
	require.NotNil(t, session.CompletedAt)

	var logs []Log
	require.NoError(t, db.Where("session_id = ?", sessionID).Find(&logs).Error)
	require.Len(t, logs, 2)
	for _, l := range logs {
		require.Equal(t, LogStateExecuted, l.State)
		require.NotNil(t, l.ResponseID)

		var resp QueryResponse
		require.NoError(t, db.First(&resp, "id = ?", *l.ResponseID).Error)
		require.Contains(t, resp.Answer, "answer: ")
	}
}

func TestEngine_RunBatch_FailureIsolation(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	answerer := &scriptedAnswerer{failSubstr: "economy"}
	engine := NewEngine(db, answerer)

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "headline", PromptText: "Summarize the headline news", DocAware: boolPtr(false)},
		{Name: "economy", PromptText: "Summarize the economy news", DocAware: boolPtr(false)},
		{Name: "culture", PromptText: "Summarize the culture news", DocAware: boolPtr(false)},
	})

	sessionID, err := engine.CreateSession(ctx, nil, &tmpl.ID, nil)
	require.NoError(t, err)
	_, err = engine.RunBatch(ctx, sessionID, false)
	require.NoError(t, err)

	// 失败的 prompt 不阻断兄弟 prompt
	require.Len(t, answerer.calls, 3)

	var failed []Log
	require.NoError(t, db.Where("session_id = ? AND state = ?", sessionID, LogStateFailed).Find(&failed).Error)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].ErrorMessage)
	require.Contains(t, *failed[0].ErrorMessage, "上游模型错误")

	var executed []Log
	require.NoError(t, db.Where("session_id = ? AND state = ?", sessionID, LogStateExecuted).Find(&executed).Error)
	require.Len(t, executed, 2)

	var session Session
	require.NoError(t, db.First(&session, "id = ?", sessionID).Error)
	require.Equal(t, StatusFailed, session.Status)
	require.Nil(t, session.CompletedAt)
}

func TestEngine_RunBatch_PanicIsolation(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	answerer := &scriptedAnswerer{panicSubstr: "economy"}
	engine := NewEngine(db, answerer)

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "headline", PromptText: "Summarize the headline news", DocAware: boolPtr(false)},
		{Name: "economy", PromptText: "Summarize the economy news", DocAware: boolPtr(false)},
	})

	sessionID, err := engine.CreateSession(ctx, nil, &tmpl.ID, nil)
	require.NoError(t, err)
	_, err = engine.RunBatch(ctx, sessionID, false)
	require.NoError(t, err)

	var failed []Log
	require.NoError(t, db.Where("session_id = ? AND state = ?", sessionID, LogStateFailed).Find(&failed).Error)
	require.Len(t, failed, 1)
	require.Contains(t, *failed[0].ErrorMessage, "panic:")

	var executed int64
	require.NoError(t, db.Model(&Log{}).
		Where("session_id = ? AND state = ?", sessionID, LogStateExecuted).
		Count(&executed).Error)
	require.Equal(t, int64(1), executed)
}

func TestEngine_ReRunOne_LatestWinsWithoutRefinalize(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	answerer := &scriptedAnswerer{failSubstr: "economy"}
	engine := NewEngine(db, answerer)

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "headline", PromptText: "Summarize the headline news", Alias: strPtr("headline"), DocAware: boolPtr(false)},
		{Name: "economy", PromptText: "Summarize the economy news", Alias: strPtr("economy"), DocAware: boolPtr(false)},
	})

	sessionID, err := engine.CreateSession(ctx, nil, &tmpl.ID, nil)
	require.NoError(t, err)
	_, err = engine.RunBatch(ctx, sessionID, false)
	require.NoError(t, err)

	var session Session
	require.NoError(t, db.First(&session, "id = ?", sessionID).Error)
	require.Equal(t, StatusFailed, session.Status)

	// 人工重跑成功后追加新日志，会话状态保持不变
	answerer.failSubstr = ""
	var economy template.Prompt
	require.NoError(t, db.First(&economy, "name = ?", "economy").Error)
	require.NoError(t, engine.ReRunOne(ctx, sessionID, economy.ID, nil))

	require.NoError(t, db.First(&session, "id = ?", sessionID).Error)
	require.Equal(t, StatusFailed, session.Status)

	// 旧的 FAILED 日志仍在（仅追加不改写）
	var logCount int64
	require.NoError(t, db.Model(&Log{}).
		Where("session_id = ? AND prompt_id = ?", sessionID, economy.ID).
		Count(&logCount).Error)
	require.Equal(t, int64(2), logCount)

	// latest-wins：汇总结果取最新成功日志
	results, err := engine.ResolveSessionResults(ctx, sessionID)
	require.NoError(t, err)
	require.Contains(t, results["economy"], "answer: ")

	// 显式重新汇总后会话转为 EXECUTED
	prompts, err := template.NewService(db).ScheduledPrompts(ctx, tmpl.ID)
	require.NoError(t, err)
	require.NoError(t, engine.FinalizeSession(ctx, sessionID, prompts))

	require.NoError(t, db.First(&session, "id = ?", sessionID).Error)
	require.Equal(t, StatusExecuted, session.Status)
	require.NotNil(t, session.CompletedAt)
}

func TestEngine_FinalizeSession_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	engine := NewEngine(db, &scriptedAnswerer{})

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "headline", PromptText: "Summarize the headline news", DocAware: boolPtr(false)},
	})

	sessionID, err := engine.CreateSession(ctx, nil, &tmpl.ID, nil)
	require.NoError(t, err)
	_, err = engine.RunBatch(ctx, sessionID, false)
	require.NoError(t, err)

	var first Session
	require.NoError(t, db.First(&first, "id = ?", sessionID).Error)
	require.NotNil(t, first.CompletedAt)

	// 日志不变时重复汇总保持 completed_at 不变
	prompts, err := template.NewService(db).ScheduledPrompts(ctx, tmpl.ID)
	require.NoError(t, err)
	require.NoError(t, engine.FinalizeSession(ctx, sessionID, prompts))

	var second Session
	require.NoError(t, db.First(&second, "id = ?", sessionID).Error)
	require.Equal(t, StatusExecuted, second.Status)
	require.True(t, first.CompletedAt.Equal(*second.CompletedAt))
}

func TestEngine_ExecuteAndLog_MissingSessionIsNoop(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	engine := NewEngine(db, &scriptedAnswerer{})

	seedTemplate(t, db, []template.PromptInput{
		{Name: "headline", PromptText: "Summarize the headline news", DocAware: boolPtr(false)},
	})
	var prompt template.Prompt
	require.NoError(t, db.First(&prompt, "name = ?", "headline").Error)

	require.NoError(t, engine.ExecuteAndLog(ctx, prompt, "no-such-session", nil))

	var count int64
	require.NoError(t, db.Model(&Log{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestEngine_AliasSubstitution(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	answerer := &scriptedAnswerer{
		answerFor: func(query string) string {
			if strings.Contains(query, "headline") {
				return "HEADLINE-ANSWER"
			}
			return "answer: " + query
		},
	}
	engine := NewEngine(db, answerer)

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "headline", PromptText: "Summarize the headline news", Alias: strPtr("headline"), DocAware: boolPtr(false)},
		{Name: "tweet", PromptText: "Write a tweet about: {{headline}} and {{missing}}", DocAware: boolPtr(false)},
	})

	sessionID, err := engine.CreateSession(ctx, nil, &tmpl.ID, nil)
	require.NoError(t, err)
	_, err = engine.RunBatch(ctx, sessionID, false)
	require.NoError(t, err)

	require.Len(t, answerer.calls, 2)
	// 已成功的 alias 被替换，未知 alias 原样保留
	require.Equal(t, "Write a tweet about: HEADLINE-ANSWER and {{missing}}", answerer.calls[1].query)
}

func TestEngine_RunBatch_ScheduledSelection(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	answerer := &scriptedAnswerer{}
	engine := NewEngine(db, answerer)

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "daily", PromptText: "Summarize the daily news", DocAware: boolPtr(false)},
		{Name: "manual", PromptText: "Summarize on demand", ScheduledExecution: boolPtr(false), DocAware: boolPtr(false)},
	})

	sessionID, err := engine.CreateSession(ctx, nil, &tmpl.ID, nil)
	require.NoError(t, err)
	_, err = engine.RunBatch(ctx, sessionID, false)
	require.NoError(t, err)
	require.Len(t, answerer.calls, 1)

	// re_execute_all 时包含计划外 prompt
	answerer.calls = nil
	sessionID2, err := engine.CreateSession(ctx, nil, &tmpl.ID, nil)
	require.NoError(t, err)
	_, err = engine.RunBatch(ctx, sessionID2, true)
	require.NoError(t, err)
	require.Len(t, answerer.calls, 2)
}

func TestEngine_DocAwareContext(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	answerer := &scriptedAnswerer{}
	engine := NewEngine(db, answerer)

	g := &gaceta.GacetaPDF{
		PublishedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		FilePath:    "gaceta_pdfs/2025-06-02/gaceta.pdf",
	}
	require.NoError(t, db.Create(g).Error)

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "docaware", PromptText: "Summarize the gazette"},
		{Name: "plain", PromptText: "Say hello", DocAware: boolPtr(false)},
	})

	sessionID, err := engine.CreateSession(ctx, nil, &tmpl.ID, &g.ID)
	require.NoError(t, err)
	_, err = engine.RunBatch(ctx, sessionID, false)
	require.NoError(t, err)

	require.Len(t, answerer.calls, 2)
	require.NotNil(t, answerer.calls[0].doc)
	require.Equal(t, g.ID, answerer.calls[0].doc.GacetaID)
	require.Nil(t, answerer.calls[1].doc)
}

func TestEngine_CreateSession_ValidatesTemplate(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	engine := NewEngine(db, &scriptedAnswerer{})

	missing := uint(9999)
	_, err := engine.CreateSession(ctx, nil, &missing, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "模板不存在")
}
