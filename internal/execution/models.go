package execution

import (
	"time"

	"gorm.io/datatypes"
)

// 会话状态
// INIT 为创建初值；EXECUTED/FAILED 由 FinalizeSession 写入；
// APPROVED/OUTDATED 由外部审核动作写入，编排器不产生这两个状态
const (
	StatusInit     = "INIT"
	StatusExecuted = "EXECUTED"
	StatusFailed   = "FAILED"
	StatusApproved = "APPROVED"
	StatusOutdated = "OUTDATED"
)

// 日志状态
const (
	LogStateInit     = "INIT"
	LogStateExecuted = "EXECUTED"
	LogStateFailed   = "FAILED"
)

// Session 执行会话：一个模板对一份公报（可选）的一次批量运行
type Session struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	TemplateID  *uint      `json:"template_id" gorm:"index"`
	UserID      *string    `json:"user_id" gorm:"size:36"`
	GacetaID    *uint      `json:"gaceta_id" gorm:"index"`
	Status      string     `json:"status" gorm:"size:20;not null;default:INIT"`
	IsApproved  bool       `json:"is_approved" gorm:"default:false"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TableName 指定表名
func (Session) TableName() string {
	return "execution_sessions"
}

// Log 执行日志。只追加：重跑会新增一行，绝不改写旧行
// 某 (session, prompt) 的当前结果是其最新一条日志（latest-wins）
type Log struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID    string    `json:"session_id" gorm:"size:36;not null;index:idx_logs_session_prompt_created,priority:1"`
	PromptID     uint      `json:"prompt_id" gorm:"not null;index:idx_logs_session_prompt_created,priority:2"`
	ResponseID   *string   `json:"response_id" gorm:"size:36"`
	State        string    `json:"state" gorm:"size:20;not null;default:INIT"`
	ErrorMessage *string   `json:"error_message" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"index:idx_logs_session_prompt_created,priority:3"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Log) TableName() string {
	return "execution_logs"
}

// QueryResponse 单次 prompt 调用的结果：实际发送的完整 prompt、答案与来源列表
type QueryResponse struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	RawPrompt string         `json:"raw_prompt" gorm:"type:text"`
	Answer    string         `json:"answer" gorm:"type:text"`
	Sources   datatypes.JSON `json:"sources"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName 指定表名
func (QueryResponse) TableName() string {
	return "query_responses"
}
