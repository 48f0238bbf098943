package templates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gacetachat/internal/common"
	"gacetachat/internal/template"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupHandlerTest(t *testing.T) (*TemplateHandler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:template_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&template.ContentTemplate{}, &template.Prompt{}))

	return NewTemplateHandler(template.NewService(db)), db
}

func postJSON(t *testing.T, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	data, err := json.Marshal(body)
	require.NoError(t, err)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/templates", bytes.NewReader(data))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestCreateTemplate_Success(t *testing.T) {
	handler, db := setupHandlerTest(t)

	alias := "intro"
	c, w := postJSON(t, CreateTemplateRequest{
		Title:       "每日模板",
		Description: "测试",
		Prompts: []template.PromptInput{
			{Name: "intro", PromptText: "Summarize today", Alias: &alias},
			{Name: "detail", PromptText: "Give details"},
		},
	})

	handler.CreateTemplate(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	var count int64
	require.NoError(t, db.Model(&template.Prompt{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestCreateTemplate_MissingPrompts(t *testing.T) {
	handler, _ := setupHandlerTest(t)

	c, w := postJSON(t, map[string]any{"title": "空模板", "prompts": []any{}})
	handler.CreateTemplate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, common.CodeInvalidRequest, resp.Code)
}

func TestCreateTemplate_AliasConflict(t *testing.T) {
	handler, _ := setupHandlerTest(t)

	alias := "twitter"
	c, w := postJSON(t, CreateTemplateRequest{
		Title:   "模板一",
		Prompts: []template.PromptInput{{Name: "a", PromptText: "text", Alias: &alias}},
	})
	handler.CreateTemplate(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = postJSON(t, CreateTemplateRequest{
		Title:   "模板二",
		Prompts: []template.PromptInput{{Name: "b", PromptText: "text", Alias: &alias}},
	})
	handler.CreateTemplate(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, common.CodeAliasConflict, resp.Code)
}

func TestGetTemplate_NotFound(t *testing.T) {
	handler, _ := setupHandlerTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/templates/9999", nil)
	c.Params = gin.Params{{Key: "id", Value: "9999"}}

	handler.GetTemplate(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTemplate_InvalidID(t *testing.T) {
	handler, _ := setupHandlerTest(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/templates/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.GetTemplate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTemplates(t *testing.T) {
	handler, db := setupHandlerTest(t)
	_, err := template.NewService(db).SeedPreset(context.Background())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/templates", nil)

	handler.ListTemplates(c)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                       `json:"success"`
		Data    []template.ContentTemplate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	require.Equal(t, template.PresetTemplateTitle, resp.Data[0].Title)
	require.Len(t, resp.Data[0].Prompts, 6)
}
