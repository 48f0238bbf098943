package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gacetachat/internal/gaceta"
	"gacetachat/internal/logger"
	"gacetachat/internal/metrics"
	"gacetachat/internal/qa"
	"gacetachat/internal/template"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine prompt 批量执行引擎
// 依赖全部显式注入，不读任何全局状态
type Engine struct {
	db            *gorm.DB
	answerer      qa.Answerer
	answerTimeout time.Duration
}

// NewEngine 创建执行引擎
func NewEngine(db *gorm.DB, answerer qa.Answerer, opts ...EngineOption) *Engine {
	e := &Engine{
		db:            db,
		answerer:      answerer,
		answerTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EngineOption 用于自定义 Engine 配置
type EngineOption func(*Engine)

// WithAnswerTimeout 配置单次适配器调用超时
func WithAnswerTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.answerTimeout = d
		}
	}
}

// CreateSession 创建 INIT 状态的执行会话
// templateID 非空时校验模板存在，避免悄悄接受无效模板
func (e *Engine) CreateSession(ctx context.Context, userID *string, templateID *uint, gacetaID *uint) (string, error) {
	if templateID != nil {
		var count int64
		if err := e.db.WithContext(ctx).
			Model(&template.ContentTemplate{}).
			Where("id = ?", *templateID).
			Count(&count).Error; err != nil {
			return "", fmt.Errorf("校验模板失败: %w", err)
		}
		if count == 0 {
			return "", fmt.Errorf("模板不存在: %d", *templateID)
		}
	}

	session := &Session{
		ID:         uuid.New().String(),
		TemplateID: templateID,
		UserID:     userID,
		GacetaID:   gacetaID,
		Status:     StatusInit,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.db.WithContext(ctx).Create(session).Error; err != nil {
		return "", fmt.Errorf("创建执行会话失败: %w", err)
	}
	return session.ID, nil
}

// RunBatch 顺序执行会话模板的 prompt 批次
// reExecuteAll 为 false 时只跑计划内 prompt，为 true 时跑全部
// 单个 prompt 的失败被隔离为 FAILED 日志，绝不中断兄弟 prompt；
// 全部尝试完成后汇总会话状态
func (e *Engine) RunBatch(ctx context.Context, sessionID string, reExecuteAll bool) (string, error) {
	session, err := e.getSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.TemplateID == nil {
		return "", fmt.Errorf("会话未关联模板: %s", sessionID)
	}

	prompts, err := e.memberPrompts(ctx, *session.TemplateID, reExecuteAll)
	if err != nil {
		return "", err
	}

	for _, prompt := range prompts {
		e.runIsolated(ctx, prompt, sessionID, nil)
	}

	if err := e.FinalizeSession(ctx, sessionID, prompts); err != nil {
		return "", err
	}
	return sessionID, nil
}

// ReRunOne 单独重跑会话内的一个 prompt
// 与 RunBatch 走同一条执行路径，但有意不重新汇总会话状态：
// 批量执行对状态是原子的，人工重跑不是，需要时由调用方显式触发 FinalizeSession
func (e *Engine) ReRunOne(ctx context.Context, sessionID string, promptID uint, ov *qa.Overrides) error {
	var prompt template.Prompt
	if err := e.db.WithContext(ctx).First(&prompt, promptID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("prompt 不存在: %d", promptID)
		}
		return fmt.Errorf("查询 prompt 失败: %w", err)
	}

	e.runIsolated(ctx, prompt, sessionID, ov)
	return nil
}

// runIsolated 以失败隔离的方式执行单个 prompt
// ExecuteAndLog 返回的存储层错误以及 panic 都收敛为该 prompt 的 FAILED 日志
func (e *Engine) runIsolated(ctx context.Context, prompt template.Prompt, sessionID string, ov *qa.Overrides) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("prompt 执行 panic",
				zap.String("session_id", sessionID),
				zap.Uint("prompt_id", prompt.ID),
				zap.Any("panic", r),
			)
			e.writeFailedLog(ctx, sessionID, prompt.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := e.ExecuteAndLog(ctx, prompt, sessionID, ov); err != nil {
		logger.Error("prompt 执行失败",
			zap.String("session_id", sessionID),
			zap.Uint("prompt_id", prompt.ID),
			zap.Error(err),
		)
		e.writeFailedLog(ctx, sessionID, prompt.ID, err.Error())
	}
}

// ExecuteAndLog 执行单个 prompt 并记录结果
// 会话不存在时按防御性约定直接跳过（记 WARN，不报错）；
// 适配器失败写 FAILED 日志并返回 nil；仅存储层失败才返回 error
func (e *Engine) ExecuteAndLog(ctx context.Context, prompt template.Prompt, sessionID string, ov *qa.Overrides) error {
	session, err := e.getSession(ctx, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Warn("会话不存在，跳过执行",
				zap.String("session_id", sessionID),
				zap.Uint("prompt_id", prompt.ID),
			)
			return nil
		}
		return err
	}

	// 文档上下文：doc_aware 且会话关联了公报时才限定检索范围
	var doc *qa.DocumentContext
	if prompt.DocAware && session.GacetaID != nil {
		var g gaceta.GacetaPDF
		if err := e.db.WithContext(ctx).First(&g, *session.GacetaID).Error; err == nil {
			doc = &qa.DocumentContext{GacetaID: g.ID, Date: g.PublishedAt}
		} else if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("查询会话公报失败: %w", err)
		}
	}

	// 用本会话已完成的结果替换 {{alias}} 占位符
	// 只能引用此刻已经成功的 prompt；未解析的占位符原样保留，
	// 正确性依赖模板作者把生产者排在消费者之前
	results, err := e.ResolveSessionResults(ctx, sessionID)
	if err != nil {
		return err
	}
	promptText := prompt.PromptText
	for alias, answer := range results {
		promptText = strings.ReplaceAll(promptText, "{{"+alias+"}}", answer)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.answerTimeout)
	defer cancel()

	start := time.Now()
	result, err := e.answerer.Answer(callCtx, promptText, doc, ov)
	metrics.AdapterRequestDuration.
		WithLabelValues(fmt.Sprintf("%t", doc != nil)).
		Observe(time.Since(start).Seconds())

	if err != nil {
		// 超时、取消与上游错误同等对待：记 FAILED，绝不停留在 INIT
		logger.Warn("适配器调用失败",
			zap.String("session_id", sessionID),
			zap.Uint("prompt_id", prompt.ID),
			zap.Error(err),
		)
		return e.writeFailedLog(ctx, sessionID, prompt.ID, err.Error())
	}

	return e.writeExecutedLog(ctx, sessionID, prompt.ID, result)
}

// ResolveSessionResults 汇总会话内已成功 prompt 的 alias→答案映射
// 同一 prompt 取创建时间最新的 EXECUTED 日志（latest-wins）
func (e *Engine) ResolveSessionResults(ctx context.Context, sessionID string) (map[string]string, error) {
	var logs []Log
	if err := e.db.WithContext(ctx).
		Where("session_id = ? AND state = ? AND response_id IS NOT NULL", sessionID, LogStateExecuted).
		Order("created_at ASC, id ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("查询执行日志失败: %w", err)
	}

	latest := LatestByPrompt(logs)
	if len(latest) == 0 {
		return map[string]string{}, nil
	}

	promptIDs := make([]uint, 0, len(latest))
	responseIDs := make([]string, 0, len(latest))
	for promptID, l := range latest {
		promptIDs = append(promptIDs, promptID)
		responseIDs = append(responseIDs, *l.ResponseID)
	}

	var prompts []template.Prompt
	if err := e.db.WithContext(ctx).
		Where("id IN ? AND alias IS NOT NULL", promptIDs).
		Find(&prompts).Error; err != nil {
		return nil, fmt.Errorf("查询 prompt 别名失败: %w", err)
	}

	var responses []QueryResponse
	if err := e.db.WithContext(ctx).
		Where("id IN ?", responseIDs).
		Find(&responses).Error; err != nil {
		return nil, fmt.Errorf("查询结果失败: %w", err)
	}
	answers := make(map[string]string, len(responses))
	for _, r := range responses {
		answers[r.ID] = r.Answer
	}

	results := make(map[string]string, len(prompts))
	for _, p := range prompts {
		if p.Alias == nil {
			continue
		}
		l := latest[p.ID]
		if answer, ok := answers[*l.ResponseID]; ok {
			results[*p.Alias] = answer
		}
	}
	return results, nil
}

// FinalizeSession 从成员 prompt 的最新日志推导会话状态。幂等
// 全部最新日志为 EXECUTED → EXECUTED 并盖 completed_at；否则 FAILED 且清空 completed_at
func (e *Engine) FinalizeSession(ctx context.Context, sessionID string, prompts []template.Prompt) error {
	session, err := e.getSession(ctx, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("会话不存在: %s", sessionID)
		}
		return err
	}

	var logs []Log
	if err := e.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&logs).Error; err != nil {
		return fmt.Errorf("查询执行日志失败: %w", err)
	}

	updates := map[string]any{}
	if AllExecuted(prompts, LatestByPrompt(logs)) {
		updates["status"] = StatusExecuted
		// 日志未变时重复调用保持 completed_at 不变
		if session.Status != StatusExecuted || session.CompletedAt == nil {
			updates["completed_at"] = time.Now().UTC()
		}
	} else {
		updates["status"] = StatusFailed
		updates["completed_at"] = nil
	}

	if err := e.db.WithContext(ctx).
		Model(&Session{}).
		Where("id = ?", sessionID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("更新会话状态失败: %w", err)
	}

	metrics.SessionFinalizationsTotal.WithLabelValues(updates["status"].(string)).Inc()
	return nil
}

// ExecuteTemplate 创建会话并立即执行批次，调度器的每日入口
func (e *Engine) ExecuteTemplate(ctx context.Context, userID *string, templateID uint, gacetaID *uint, reExecuteAll bool) (string, error) {
	sessionID, err := e.CreateSession(ctx, userID, &templateID, gacetaID)
	if err != nil {
		return "", err
	}
	return e.RunBatch(ctx, sessionID, reExecuteAll)
}

// memberPrompts 选择批次成员：计划内或全部，按 ID 升序即模板执行顺序
func (e *Engine) memberPrompts(ctx context.Context, templateID uint, all bool) ([]template.Prompt, error) {
	query := e.db.WithContext(ctx).Where("template_id = ?", templateID)
	if !all {
		query = query.Where("scheduled_execution = ?", true)
	}

	var prompts []template.Prompt
	if err := query.Order("id ASC").Find(&prompts).Error; err != nil {
		return nil, fmt.Errorf("查询批次 prompt 失败: %w", err)
	}
	return prompts, nil
}

func (e *Engine) getSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	if err := e.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// writeExecutedLog 在同一事务里写结果与 EXECUTED 日志
// 两者要么都落库要么都不落，避免悬空结果或指向不存在结果的日志
func (e *Engine) writeExecutedLog(ctx context.Context, sessionID string, promptID uint, result *qa.Result) error {
	sources, err := json.Marshal(result.Sources)
	if err != nil {
		return fmt.Errorf("序列化来源列表失败: %w", err)
	}

	now := time.Now().UTC()
	response := &QueryResponse{
		ID:        uuid.New().String(),
		RawPrompt: result.RawPrompt,
		Answer:    result.Answer,
		Sources:   sources,
		CreatedAt: now,
	}
	log := &Log{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		PromptID:   promptID,
		ResponseID: &response.ID,
		State:      LogStateExecuted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(response).Error; err != nil {
			return fmt.Errorf("保存结果失败: %w", err)
		}
		if err := tx.Create(log).Error; err != nil {
			return fmt.Errorf("保存执行日志失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.PromptExecutionsTotal.WithLabelValues(LogStateExecuted).Inc()
	return nil
}

// writeFailedLog 追加一条 FAILED 日志，不产生结果记录
func (e *Engine) writeFailedLog(ctx context.Context, sessionID string, promptID uint, errMsg string) error {
	now := time.Now().UTC()
	log := &Log{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		PromptID:     promptID,
		State:        LogStateFailed,
		ErrorMessage: &errMsg,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.db.WithContext(ctx).Create(log).Error; err != nil {
		logger.Error("写入失败日志失败",
			zap.String("session_id", sessionID),
			zap.Uint("prompt_id", promptID),
			zap.Error(err),
		)
		return fmt.Errorf("保存失败日志失败: %w", err)
	}

	metrics.PromptExecutionsTotal.WithLabelValues(LogStateFailed).Inc()
	return nil
}
