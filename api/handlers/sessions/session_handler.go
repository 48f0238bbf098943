package sessions

import (
	"errors"
	"strconv"
	"time"

	"gacetachat/internal/common"
	"gacetachat/internal/execution"
	"gacetachat/internal/infra/queue"
	"gacetachat/internal/qa"
	"gacetachat/internal/social"
	"gacetachat/internal/template"
	"gacetachat/internal/worker/tasks"

	"github.com/gin-gonic/gin"
)

// SessionHandler 执行会话管理 Handler
type SessionHandler struct {
	engine    *execution.Engine
	viewer    *execution.Viewer
	templates *template.Service
	approval  *social.Service
	queue     queue.Client
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(
	engine *execution.Engine,
	viewer *execution.Viewer,
	templates *template.Service,
	approval *social.Service,
	queueClient queue.Client,
) *SessionHandler {
	return &SessionHandler{
		engine:    engine,
		viewer:    viewer,
		templates: templates,
		approval:  approval,
		queue:     queueClient,
	}
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	TemplateID   *uint   `json:"template_id"`
	GacetaID     *uint   `json:"gaceta_id"`
	UserID       *string `json:"user_id"`
	ReExecuteAll bool    `json:"re_execute_all"`
}

// ReRunRequest 单 prompt 重跑请求，可临时覆盖模型参数
type ReRunRequest struct {
	Model       string   `json:"model"`
	Temperature *float32 `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
}

// CreateSession 创建会话并异步执行批次
// POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	sessionID, err := h.engine.CreateSession(c.Request.Context(), req.UserID, req.TemplateID, req.GacetaID)
	if err != nil {
		common.ResponseError(c, common.CodeTemplateNotFound, err.Error())
		return
	}

	if req.TemplateID != nil {
		if err := h.queue.EnqueueRunBatch(tasks.RunBatchPayload{
			SessionID:    sessionID,
			ReExecuteAll: req.ReExecuteAll,
		}); err != nil {
			common.ResponseServerError(c, "批次任务入队失败: "+err.Error())
			return
		}
	}

	common.ResponseAccepted(c, gin.H{"session_id": sessionID})
}

// GetSession 查询会话详情及每个 prompt 的当前结果
// GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	view, err := h.viewer.GetSessionView(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.ResponseError(c, common.CodeSessionNotFound, err.Error())
		return
	}
	common.ResponseSuccess(c, view)
}

// ListSessions 按公报日期列出会话
// GET /api/sessions?date=2006-01-02
func (h *SessionHandler) ListSessions(c *gin.Context) {
	dateStr := c.Query("date")
	if dateStr == "" {
		common.ResponseBadRequest(c, "缺少 date 参数")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		common.ResponseBadRequest(c, "无效的日期格式，应为 2006-01-02")
		return
	}

	sessions, err := h.viewer.ListSessionsByDate(c.Request.Context(), date)
	if err != nil {
		common.ResponseServerError(c, err.Error())
		return
	}
	common.ResponseSuccess(c, sessions)
}

// ReRunPrompt 同步重跑会话内的单个 prompt
// POST /api/sessions/:id/prompts/:promptID/rerun
func (h *SessionHandler) ReRunPrompt(c *gin.Context) {
	sessionID := c.Param("id")
	promptID, err := strconv.ParseUint(c.Param("promptID"), 10, 32)
	if err != nil {
		common.ResponseBadRequest(c, "无效的 prompt ID")
		return
	}

	var req ReRunRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		common.ResponseBadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	var ov *qa.Overrides
	if req.Model != "" || req.Temperature != nil || req.MaxTokens > 0 {
		ov = &qa.Overrides{
			Model:       req.Model,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}
	}

	if err := h.engine.ReRunOne(c.Request.Context(), sessionID, uint(promptID), ov); err != nil {
		common.ResponseError(c, common.CodePromptNotFound, err.Error())
		return
	}

	view, err := h.viewer.GetSessionView(c.Request.Context(), sessionID)
	if err != nil {
		common.ResponseError(c, common.CodeSessionNotFound, err.Error())
		return
	}
	common.ResponseSuccess(c, view)
}

// FinalizeSession 根据当前日志重新汇总会话状态
// POST /api/sessions/:id/finalize
func (h *SessionHandler) FinalizeSession(c *gin.Context) {
	sessionID := c.Param("id")

	view, err := h.viewer.GetSessionView(c.Request.Context(), sessionID)
	if err != nil {
		common.ResponseError(c, common.CodeSessionNotFound, err.Error())
		return
	}

	var prompts []template.Prompt
	if view.Session.TemplateID != nil {
		prompts, err = h.templates.ScheduledPrompts(c.Request.Context(), *view.Session.TemplateID)
		if err != nil {
			common.ResponseServerError(c, err.Error())
			return
		}
	}

	if err := h.engine.FinalizeSession(c.Request.Context(), sessionID, prompts); err != nil {
		common.ResponseError(c, common.CodeFinalizeFailed, err.Error())
		return
	}

	view, err = h.viewer.GetSessionView(c.Request.Context(), sessionID)
	if err != nil {
		common.ResponseError(c, common.CodeSessionNotFound, err.Error())
		return
	}
	common.ResponseSuccess(c, view.Session)
}

// ApproveSession 批准会话并发布推文
// POST /api/sessions/:id/approve
func (h *SessionHandler) ApproveSession(c *gin.Context) {
	session, err := h.approval.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, social.ErrNotApprovable):
			common.ResponseError(c, common.CodeNotApprovable, err.Error())
		case errors.Is(err, social.ErrNoTweetText), errors.Is(err, social.ErrNotAuthorized):
			common.ResponseError(c, common.CodeTweetFailed, err.Error())
		default:
			common.ResponseError(c, common.CodeSessionNotFound, err.Error())
		}
		return
	}
	common.ResponseSuccess(c, session)
}
