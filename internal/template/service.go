package template

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ErrAliasTaken 别名冲突，属于模板定义错误，必须向调用方暴露
var ErrAliasTaken = fmt.Errorf("prompt 别名已被占用")

// Service 内容模板服务
type Service struct {
	db *gorm.DB
}

// NewService 创建 Service 实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// PromptInput 创建模板时的 prompt 定义
type PromptInput struct {
	Name               string  `json:"name"`
	ShortDescription   string  `json:"short_description"`
	PromptText         string  `json:"prompt_text" binding:"required"`
	Alias              *string `json:"alias"`
	ScheduledExecution *bool   `json:"scheduled_execution"`
	DocAware           *bool   `json:"doc_aware"`
}

// CreateTemplate 创建模板及其 prompt 集合
// 别名在全部 prompt 范围内唯一，冲突时返回 ErrAliasTaken 并回滚
func (s *Service) CreateTemplate(ctx context.Context, title, description string, prompts []PromptInput) (*ContentTemplate, error) {
	tmpl := &ContentTemplate{
		Title:       title,
		Description: description,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tmpl).Error; err != nil {
			return fmt.Errorf("创建模板失败: %w", err)
		}

		for _, in := range prompts {
			if in.Alias != nil && *in.Alias != "" {
				var count int64
				if err := tx.Model(&Prompt{}).Where("alias = ?", *in.Alias).Count(&count).Error; err != nil {
					return fmt.Errorf("检查别名失败: %w", err)
				}
				if count > 0 {
					return fmt.Errorf("%w: %s", ErrAliasTaken, *in.Alias)
				}
			}

			p := Prompt{
				TemplateID:         tmpl.ID,
				Name:               in.Name,
				ShortDescription:   in.ShortDescription,
				PromptText:         in.PromptText,
				Alias:              normalizeAlias(in.Alias),
				ScheduledExecution: boolOrDefault(in.ScheduledExecution, true),
				DocAware:           boolOrDefault(in.DocAware, true),
			}
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("创建 prompt 失败: %w", err)
			}
			tmpl.Prompts = append(tmpl.Prompts, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tmpl, nil
}

// GetTemplate 查询模板（含 prompt 列表，按 ID 升序即执行顺序）
func (s *Service) GetTemplate(ctx context.Context, id uint) (*ContentTemplate, error) {
	var tmpl ContentTemplate
	if err := s.db.WithContext(ctx).
		Preload("Prompts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&tmpl, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("模板不存在: %d", id)
		}
		return nil, fmt.Errorf("查询模板失败: %w", err)
	}
	return &tmpl, nil
}

// ListTemplates 查询全部模板
func (s *Service) ListTemplates(ctx context.Context) ([]ContentTemplate, error) {
	var templates []ContentTemplate
	if err := s.db.WithContext(ctx).
		Preload("Prompts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id ASC").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("查询模板列表失败: %w", err)
	}
	return templates, nil
}

// ScheduledPrompts 查询模板中纳入计划执行的 prompt，按 ID 升序
func (s *Service) ScheduledPrompts(ctx context.Context, templateID uint) ([]Prompt, error) {
	var prompts []Prompt
	if err := s.db.WithContext(ctx).
		Where("template_id = ? AND scheduled_execution = ?", templateID, true).
		Order("id ASC").
		Find(&prompts).Error; err != nil {
		return nil, fmt.Errorf("查询计划 prompt 失败: %w", err)
	}
	return prompts, nil
}

// AllPrompts 查询模板全部 prompt，按 ID 升序
func (s *Service) AllPrompts(ctx context.Context, templateID uint) ([]Prompt, error) {
	var prompts []Prompt
	if err := s.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("id ASC").
		Find(&prompts).Error; err != nil {
		return nil, fmt.Errorf("查询 prompt 失败: %w", err)
	}
	return prompts, nil
}

// GetPrompt 按 ID 查询单个 prompt
func (s *Service) GetPrompt(ctx context.Context, id uint) (*Prompt, error) {
	var p Prompt
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("prompt 不存在: %d", id)
		}
		return nil, fmt.Errorf("查询 prompt 失败: %w", err)
	}
	return &p, nil
}

func normalizeAlias(alias *string) *string {
	if alias == nil || *alias == "" {
		return nil
	}
	return alias
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
