package templates

import (
	"errors"
	"strconv"

	"gacetachat/internal/common"
	"gacetachat/internal/template"

	"github.com/gin-gonic/gin"
)

// TemplateHandler Prompt 模板管理 Handler
type TemplateHandler struct {
	service *template.Service
}

// NewTemplateHandler 创建 TemplateHandler 实例
func NewTemplateHandler(service *template.Service) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// CreateTemplateRequest 创建模板请求
type CreateTemplateRequest struct {
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	Prompts     []template.PromptInput `json:"prompts" binding:"required,min=1,dive"`
}

// ListTemplates 查询模板列表
// GET /api/templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	tmpls, err := h.service.ListTemplates(c.Request.Context())
	if err != nil {
		common.ResponseServerError(c, err.Error())
		return
	}
	common.ResponseSuccess(c, tmpls)
}

// GetTemplate 查询单个模板及其全部 prompt
// GET /api/templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		common.ResponseBadRequest(c, "无效的模板ID")
		return
	}

	tmpl, err := h.service.GetTemplate(c.Request.Context(), uint(id))
	if err != nil {
		common.ResponseError(c, common.CodeTemplateNotFound, err.Error())
		return
	}
	common.ResponseSuccess(c, tmpl)
}

// CreateTemplate 创建模板及其 prompt 集合
// POST /api/templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	tmpl, err := h.service.CreateTemplate(c.Request.Context(), req.Title, req.Description, req.Prompts)
	if err != nil {
		if errors.Is(err, template.ErrAliasTaken) {
			common.ResponseError(c, common.CodeAliasConflict, err.Error())
			return
		}
		common.ResponseServerError(c, err.Error())
		return
	}
	common.ResponseCreated(c, tmpl)
}
