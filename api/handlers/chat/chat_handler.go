package chat

import (
	"errors"

	"gacetachat/internal/common"
	"gacetachat/internal/counter"
	"gacetachat/internal/gaceta"
	"gacetachat/internal/qa"

	"github.com/gin-gonic/gin"
)

// ChatHandler 即席公报问答 Handler
// 走与批次执行相同的检索问答路径，但受全局每日配额限制
type ChatHandler struct {
	answerer qa.Answerer
	gacetas  *gaceta.Service
	counter  *counter.DailyQueryCounter
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(answerer qa.Answerer, gacetas *gaceta.Service, queryCounter *counter.DailyQueryCounter) *ChatHandler {
	return &ChatHandler{
		answerer: answerer,
		gacetas:  gacetas,
		counter:  queryCounter,
	}
}

// ChatRequest 问答请求，gaceta_id 为空时不带文档上下文
type ChatRequest struct {
	Query    string `json:"query" binding:"required"`
	GacetaID *uint  `json:"gaceta_id"`
}

// ChatResponse 问答响应
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Chat 即席问答
// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.counter.Consume(c.Request.Context()); err != nil {
		if errors.Is(err, counter.ErrLimitExceeded) {
			common.ResponseError(c, common.CodeQueryLimitExceeded, err.Error())
			return
		}
		common.ResponseServerError(c, err.Error())
		return
	}

	var doc *qa.DocumentContext
	if req.GacetaID != nil {
		g, err := h.gacetas.FindByID(c.Request.Context(), *req.GacetaID)
		if err != nil {
			common.ResponseError(c, common.CodeGacetaNotFound, err.Error())
			return
		}
		if !g.Indexed {
			common.ResponseError(c, common.CodeGacetaNotIndexed, common.GetErrorMessage(common.CodeGacetaNotIndexed))
			return
		}
		doc = &qa.DocumentContext{GacetaID: g.ID, Date: g.PublishedAt}
	}

	result, err := h.answerer.Answer(c.Request.Context(), req.Query, doc, nil)
	if err != nil {
		common.ResponseError(c, common.CodeAnswerFailed, err.Error())
		return
	}

	common.ResponseSuccess(c, ChatResponse{
		Answer:  result.Answer,
		Sources: result.Sources,
	})
}
