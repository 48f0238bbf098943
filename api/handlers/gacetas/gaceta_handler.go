package gacetas

import (
	"strconv"
	"time"

	"gacetachat/internal/common"
	"gacetachat/internal/gaceta"
	"gacetachat/internal/infra/queue"

	"github.com/gin-gonic/gin"
)

// GacetaHandler 公报管理 Handler
type GacetaHandler struct {
	service *gaceta.Service
	queue   queue.Client
}

// NewGacetaHandler 创建 GacetaHandler 实例
func NewGacetaHandler(service *gaceta.Service, queueClient queue.Client) *GacetaHandler {
	return &GacetaHandler{service: service, queue: queueClient}
}

// DownloadRequest 触发下载请求，date 为空时默认当日
type DownloadRequest struct {
	Date string `json:"date"`
}

// ListGacetas 按日期倒序列出已入库公报
// GET /api/gacetas?limit=50
func (h *GacetaHandler) ListGacetas(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	gacetas, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		common.ResponseServerError(c, err.Error())
		return
	}
	common.ResponseSuccess(c, gacetas)
}

// GetGaceta 按 ID 查询公报
// GET /api/gacetas/:id
func (h *GacetaHandler) GetGaceta(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		common.ResponseBadRequest(c, "无效的公报ID")
		return
	}

	g, err := h.service.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		common.ResponseError(c, common.CodeGacetaNotFound, err.Error())
		return
	}
	common.ResponseSuccess(c, g)
}

// TriggerDownload 异步下载并索引指定日期的公报
// POST /api/gacetas/download
func (h *GacetaHandler) TriggerDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		common.ResponseBadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	date := req.Date
	if date == "" {
		date = h.service.Today().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		common.ResponseBadRequest(c, "无效的日期格式，应为 2006-01-02")
		return
	}

	if err := h.queue.EnqueueDownloadGaceta(date); err != nil {
		common.ResponseError(c, common.CodeGacetaDownloadFailed, "下载任务入队失败: "+err.Error())
		return
	}
	common.ResponseAccepted(c, gin.H{"date": date})
}
