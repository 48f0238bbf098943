package common

// ============================================================================
// 通用请求类型
// ============================================================================

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `json:"page" form:"page" binding:"omitempty,min=1"`           // 页码，从1开始
	PageSize int `json:"page_size" form:"page_size" binding:"omitempty,min=1"` // 每页数量
}

// DefaultPagination 返回默认分页参数
func DefaultPagination() PaginationRequest {
	return PaginationRequest{
		Page:     1,
		PageSize: 20,
	}
}

// GetOffset 计算数据库查询的偏移量
func (p PaginationRequest) GetOffset() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.GetPageSize()
}

// GetPageSize 获取每页数量，提供默认值
func (p PaginationRequest) GetPageSize() int {
	if p.PageSize < 1 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// ============================================================================
// 通用响应类型
// ============================================================================

// APIResponse 统一API响应格式
type APIResponse struct {
	Success bool   `json:"success"`           // 是否成功
	Data    any    `json:"data,omitempty"`    // 响应数据
	Message string `json:"message,omitempty"` // 提示信息
	Code    int    `json:"code"`              // 业务状态码
}

// SuccessResponse 成功响应
func SuccessResponse(data any) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
		Code:    0,
	}
}

// SuccessMessageResponse 成功响应（带消息）
func SuccessMessageResponse(message string, data any) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
		Message: message,
		Code:    0,
	}
}

// ErrorResponse 错误响应
func ErrorResponse(code int, message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Code:    code,
	}
}

// PaginationMeta 分页元信息
type PaginationMeta struct {
	Page       int   `json:"page"`        // 当前页码
	PageSize   int   `json:"page_size"`   // 每页数量
	Total      int64 `json:"total"`       // 总记录数
	TotalPages int   `json:"total_pages"` // 总页数
}

// CalculateTotalPages 计算总页数
func (m *PaginationMeta) CalculateTotalPages() {
	if m.PageSize > 0 {
		m.TotalPages = int((m.Total + int64(m.PageSize) - 1) / int64(m.PageSize))
	}
}

// NewPaginationMeta 创建分页元信息
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	meta := PaginationMeta{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	meta.CalculateTotalPages()
	return meta
}

// ListResponse 列表响应（包含分页信息）
type ListResponse struct {
	Items      any            `json:"items"`      // 数据列表
	Pagination PaginationMeta `json:"pagination"` // 分页信息
}

// NewListResponse 创建列表响应
func NewListResponse(items any, page, pageSize int, total int64) ListResponse {
	return ListResponse{
		Items:      items,
		Pagination: NewPaginationMeta(page, pageSize, total),
	}
}

// ============================================================================
// 业务状态码定义
// ============================================================================

const (
	// 成功状态码
	CodeSuccess = 0

	// 通用错误码 (1000-1999)
	CodeInvalidRequest     = 1000 // 请求参数错误
	CodeUnauthorized       = 1001 // 未授权
	CodeForbidden          = 1002 // 禁止访问
	CodeNotFound           = 1003 // 资源不存在
	CodeConflict           = 1004 // 资源冲突
	CodeInternalError      = 1005 // 内部错误
	CodeServiceUnavailable = 1006 // 服务不可用

	// 模板相关错误码 (2000-2099)
	CodeTemplateNotFound = 2000 // 内容模板不存在
	CodePromptNotFound   = 2001 // Prompt不存在
	CodeAliasConflict    = 2002 // Prompt别名冲突

	// 执行会话相关错误码 (3000-3099)
	CodeSessionNotFound = 3000 // 执行会话不存在
	CodeBatchFailed     = 3001 // 批量执行失败
	CodeFinalizeFailed  = 3002 // 会话状态汇总失败

	// 公报相关错误码 (4000-4099)
	CodeGacetaNotFound       = 4000 // 公报不存在
	CodeGacetaDownloadFailed = 4001 // 公报下载失败
	CodeGacetaNotIndexed     = 4002 // 公报尚未建立索引

	// 问答相关错误码 (5000-5099)
	CodeAnswerFailed       = 5000 // 问答调用失败
	CodeQueryLimitExceeded = 5001 // 超出每日问答上限

	// 社交发布相关错误码 (6000-6099)
	CodeTwitterAuthFailed = 6000 // Twitter授权失败
	CodeTweetFailed       = 6001 // 推文发布失败
	CodeNotApprovable     = 6002 // 会话当前状态不可批准
)

// ErrorMessages 错误码对应的默认消息
var ErrorMessages = map[int]string{
	CodeSuccess:            "操作成功",
	CodeInvalidRequest:     "请求参数错误",
	CodeUnauthorized:       "未授权，请检查 X-API-KEY",
	CodeForbidden:          "无权限访问",
	CodeNotFound:           "资源不存在",
	CodeConflict:           "资源冲突",
	CodeInternalError:      "系统内部错误",
	CodeServiceUnavailable: "服务暂不可用",

	CodeTemplateNotFound: "内容模板不存在",
	CodePromptNotFound:   "Prompt不存在",
	CodeAliasConflict:    "Prompt别名已被占用",

	CodeSessionNotFound: "执行会话不存在",
	CodeBatchFailed:     "批量执行失败",
	CodeFinalizeFailed:  "会话状态汇总失败",

	CodeGacetaNotFound:       "公报不存在",
	CodeGacetaDownloadFailed: "公报下载失败",
	CodeGacetaNotIndexed:     "公报尚未建立索引",

	CodeAnswerFailed:       "问答调用失败",
	CodeQueryLimitExceeded: "今日问答次数已达上限",

	CodeTwitterAuthFailed: "Twitter授权失败",
	CodeTweetFailed:       "推文发布失败",
	CodeNotApprovable:     "会话当前状态不可批准",
}

// GetErrorMessage 获取错误码对应的消息
func GetErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "未知错误"
}

// ============================================================================
// 通用业务错误类型
// ============================================================================

// BusinessError 业务错误
type BusinessError struct {
	Code    int    // 错误码
	Message string // 错误信息
}

// Error 实现error接口
func (e *BusinessError) Error() string {
	return e.Message
}

// NewBusinessError 创建业务错误
func NewBusinessError(code int, message string) *BusinessError {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return &BusinessError{
		Code:    code,
		Message: message,
	}
}

// NewBusinessErrorWithCode 根据错误码创建业务错误
func NewBusinessErrorWithCode(code int) *BusinessError {
	return NewBusinessError(code, GetErrorMessage(code))
}
