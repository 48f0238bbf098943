package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
// /api 组整体挂 X-API-KEY 校验，Twitter 授权回调除外（由 Twitter 侧发起）
func RegisterRoutes(router *gin.Engine, apiKey string, h *Handlers) {
	apiGroup := router.Group("/api")
	apiGroup.Use(APIKeyAuth(apiKey))
	{
		// 模板管理
		templatesGroup := apiGroup.Group("/templates")
		{
			templatesGroup.GET("", h.Template.ListTemplates)
			templatesGroup.GET("/:id", h.Template.GetTemplate)
			templatesGroup.POST("", h.Template.CreateTemplate)
		}

		// 公报管理
		gacetasGroup := apiGroup.Group("/gacetas")
		{
			gacetasGroup.GET("", h.Gaceta.ListGacetas)
			gacetasGroup.GET("/:id", h.Gaceta.GetGaceta)
			gacetasGroup.POST("/download", h.Gaceta.TriggerDownload)
		}

		// 执行会话
		sessionsGroup := apiGroup.Group("/sessions")
		{
			sessionsGroup.GET("", h.Session.ListSessions)
			sessionsGroup.POST("", h.Session.CreateSession)
			sessionsGroup.GET("/:id", h.Session.GetSession)
			sessionsGroup.POST("/:id/prompts/:promptID/rerun", h.Session.ReRunPrompt)
			sessionsGroup.POST("/:id/finalize", h.Session.FinalizeSession)
			sessionsGroup.POST("/:id/approve", h.Session.ApproveSession)
		}

		// 即席问答
		apiGroup.POST("/chat", h.Chat.Chat)
	}

	// Twitter OAuth2（公开）
	twitterGroup := router.Group("/api/twitter")
	{
		twitterGroup.GET("/authorize", h.Twitter.Authorize)
		twitterGroup.GET("/callback", h.Twitter.Callback)
	}
}
