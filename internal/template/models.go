package template

import "time"

// ContentTemplate 内容模板：一组按顺序执行的 prompt 的命名集合
type ContentTemplate struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Prompts     []Prompt  `json:"prompts,omitempty" gorm:"foreignKey:TemplateID"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (ContentTemplate) TableName() string {
	return "content_templates"
}

// Prompt 模板成员：一条带占位符的自然语言查询
// Alias 在全部 prompt 范围内全局唯一，供后续 prompt 以 {{alias}} 引用其答案
// ScheduledExecution 决定是否纳入每日自动批次，DocAware 决定是否基于公报索引检索作答
type Prompt struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	TemplateID         uint      `json:"template_id" gorm:"index;not null"`
	Name               string    `json:"name" gorm:"size:255"`
	ShortDescription   string    `json:"short_description" gorm:"type:text"`
	PromptText         string    `json:"prompt_text" gorm:"type:text;not null"`
	Alias              *string   `json:"alias,omitempty" gorm:"size:100;uniqueIndex"`
	ScheduledExecution bool      `json:"scheduled_execution" gorm:"default:true"`
	DocAware           bool      `json:"doc_aware" gorm:"default:true"`
	CreatedAt          time.Time `json:"created_at"`
}

// TableName 指定表名
func (Prompt) TableName() string {
	return "prompts"
}
