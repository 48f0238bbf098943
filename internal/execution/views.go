package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gacetachat/internal/gaceta"
	"gacetachat/internal/template"

	"gorm.io/gorm"
)

// 尚未生成结果的 prompt 的占位展示
const (
	PlaceholderAnswer         = "Ups! No hemos generado este prompt aun! Generalo con el UI!"
	PlaceholderSourcesPending = "No sources yet"
	PlaceholderSourcesNone    = "No sources needed"
)

// PromptResultView 会话内单个 prompt 的当前结果
// 无成功日志时填充占位文案，绝不省略模板成员
type PromptResultView struct {
	PromptID         uint       `json:"prompt_id"`
	Name             string     `json:"name"`
	ShortDescription string     `json:"short_description"`
	PromptText       string     `json:"prompt_text"`
	Alias            *string    `json:"alias,omitempty"`
	DocAware         bool       `json:"doc_aware"`
	State            string     `json:"state"`
	RawPrompt        string     `json:"raw_prompt"`
	Answer           string     `json:"answer"`
	Sources          []string   `json:"sources"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	GeneratedAt      *time.Time `json:"generated_at,omitempty"`
}

// SessionView 会话详情：会话本身加每个成员 prompt 的当前结果
type SessionView struct {
	Session Session            `json:"session"`
	Results []PromptResultView `json:"results"`
}

// Viewer 会话读取访问器
type Viewer struct {
	db *gorm.DB
}

// NewViewer 创建 Viewer 实例
func NewViewer(db *gorm.DB) *Viewer {
	return &Viewer{db: db}
}

// GetSessionView 查询会话及其模板每个 prompt 的当前结果
// 当前结果 = 最新一条 EXECUTED 日志的答案；没有时返回占位行
func (v *Viewer) GetSessionView(ctx context.Context, sessionID string) (*SessionView, error) {
	var session Session
	if err := v.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("会话不存在: %s", sessionID)
		}
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}

	view := &SessionView{Session: session, Results: []PromptResultView{}}
	if session.TemplateID == nil {
		return view, nil
	}

	var prompts []template.Prompt
	if err := v.db.WithContext(ctx).
		Where("template_id = ?", *session.TemplateID).
		Order("id ASC").
		Find(&prompts).Error; err != nil {
		return nil, fmt.Errorf("查询模板 prompt 失败: %w", err)
	}

	var logs []Log
	if err := v.db.WithContext(ctx).
		Where("session_id = ? AND state = ? AND response_id IS NOT NULL", sessionID, LogStateExecuted).
		Order("created_at ASC, id ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("查询执行日志失败: %w", err)
	}
	latest := LatestByPrompt(logs)

	responseIDs := make([]string, 0, len(latest))
	for _, l := range latest {
		responseIDs = append(responseIDs, *l.ResponseID)
	}
	responses := make(map[string]QueryResponse, len(responseIDs))
	if len(responseIDs) > 0 {
		var rows []QueryResponse
		if err := v.db.WithContext(ctx).Where("id IN ?", responseIDs).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("查询结果失败: %w", err)
		}
		for _, r := range rows {
			responses[r.ID] = r
		}
	}

	for _, p := range prompts {
		view.Results = append(view.Results, buildResultView(p, latest, responses, sessionID))
	}
	return view, nil
}

// ListSessionsByDate 按公报日期倒序列出会话
func (v *Viewer) ListSessionsByDate(ctx context.Context, date time.Time) ([]Session, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var sessions []Session
	if err := v.db.WithContext(ctx).
		Joins("JOIN gacetas ON gacetas.id = execution_sessions.gaceta_id").
		Where("gacetas.published_at >= ? AND gacetas.published_at < ?", day, day.AddDate(0, 0, 1)).
		Order("execution_sessions.created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("查询会话列表失败: %w", err)
	}
	return sessions, nil
}

// LastSessionForGaceta 查询某公报最新创建的会话
func (v *Viewer) LastSessionForGaceta(ctx context.Context, gacetaID uint) (*Session, error) {
	var session Session
	err := v.db.WithContext(ctx).
		Where("gaceta_id = ?", gacetaID).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}
	return &session, nil
}

// GacetaForSession 解析会话关联的公报
func (v *Viewer) GacetaForSession(ctx context.Context, session *Session) (*gaceta.GacetaPDF, error) {
	if session.GacetaID == nil {
		return nil, nil
	}
	var g gaceta.GacetaPDF
	if err := v.db.WithContext(ctx).First(&g, *session.GacetaID).Error; err != nil {
		return nil, fmt.Errorf("查询会话公报失败: %w", err)
	}
	return &g, nil
}

func buildResultView(p template.Prompt, latest map[uint]Log, responses map[string]QueryResponse, sessionID string) PromptResultView {
	view := PromptResultView{
		PromptID:         p.ID,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		PromptText:       p.PromptText,
		Alias:            p.Alias,
		DocAware:         p.DocAware,
	}

	if l, ok := latest[p.ID]; ok {
		if r, ok := responses[*l.ResponseID]; ok {
			view.State = l.State
			view.RawPrompt = r.RawPrompt
			view.Answer = r.Answer
			view.Sources = decodeSources([]byte(r.Sources))
			generatedAt := r.CreatedAt
			view.GeneratedAt = &generatedAt
			return view
		}
	}

	// 占位行：来源文案按 doc_aware 区分
	view.State = LogStateInit
	view.RawPrompt = p.PromptText
	view.Answer = PlaceholderAnswer
	if p.DocAware {
		view.Sources = []string{PlaceholderSourcesPending}
	} else {
		view.Sources = []string{PlaceholderSourcesNone}
	}
	return view
}

func decodeSources(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var sources []string
	if err := json.Unmarshal(raw, &sources); err != nil {
		return []string{}
	}
	return sources
}
