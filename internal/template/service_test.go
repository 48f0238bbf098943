package template

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTemplateTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:template_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ContentTemplate{}, &Prompt{}))
	return db
}

func TestCreateTemplate_Defaults(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTemplateTestDB(t))

	alias := "intro"
	tmpl, err := svc.CreateTemplate(ctx, "测试模板", "描述", []PromptInput{
		{Name: "intro", PromptText: "Summarize today", Alias: &alias},
		{Name: "empty-alias", PromptText: "Say hello", Alias: new(string)},
	})
	require.NoError(t, err)
	require.Len(t, tmpl.Prompts, 2)

	// 未指定时默认纳入计划执行且 doc_aware
	require.True(t, tmpl.Prompts[0].ScheduledExecution)
	require.True(t, tmpl.Prompts[0].DocAware)
	require.NotNil(t, tmpl.Prompts[0].Alias)

	// 空字符串别名归一化为 NULL
	require.Nil(t, tmpl.Prompts[1].Alias)
}

func TestCreateTemplate_AliasConflictRollsBack(t *testing.T) {
	ctx := context.Background()
	db := setupTemplateTestDB(t)
	svc := NewService(db)

	alias := "twitter"
	_, err := svc.CreateTemplate(ctx, "模板一", "", []PromptInput{
		{Name: "a", PromptText: "text a", Alias: &alias},
	})
	require.NoError(t, err)

	_, err = svc.CreateTemplate(ctx, "模板二", "", []PromptInput{
		{Name: "b", PromptText: "text b"},
		{Name: "c", PromptText: "text c", Alias: &alias},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrAliasTaken))

	// 冲突时整个模板回滚，不留半成品
	var count int64
	require.NoError(t, db.Model(&ContentTemplate{}).Where("title = ?", "模板二").Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestSeedPreset_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTemplateTestDB(t)
	svc := NewService(db)

	first, err := svc.SeedPreset(ctx)
	require.NoError(t, err)
	require.Equal(t, PresetTemplateTitle, first.Title)
	require.Len(t, first.Prompts, 6)

	var twitterAlias bool
	for _, p := range first.Prompts {
		if p.Alias != nil && *p.Alias == TwitterPromptAlias {
			twitterAlias = true
		}
	}
	require.True(t, twitterAlias, "预置模板应包含推文 prompt 别名")

	// 重复播种返回已有模板，不新建
	second, err := svc.SeedPreset(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&ContentTemplate{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestScheduledPrompts_Filtering(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTemplateTestDB(t))

	off := false
	tmpl, err := svc.CreateTemplate(ctx, "筛选模板", "", []PromptInput{
		{Name: "daily", PromptText: "daily text"},
		{Name: "manual", PromptText: "manual text", ScheduledExecution: &off},
		{Name: "daily2", PromptText: "daily text 2"},
	})
	require.NoError(t, err)

	scheduled, err := svc.ScheduledPrompts(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, scheduled, 2)
	for _, p := range scheduled {
		require.True(t, p.ScheduledExecution)
	}

	all, err := svc.AllPrompts(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// ID 升序即模板定义顺序
	require.Equal(t, "daily", all[0].Name)
	require.Equal(t, "manual", all[1].Name)
	require.Equal(t, "daily2", all[2].Name)
}
