package api

import (
	"context"
	"time"

	"gacetachat/api/handlers/chat"
	"gacetachat/api/handlers/gacetas"
	"gacetachat/api/handlers/sessions"
	"gacetachat/api/handlers/templates"
	twitterHandlers "gacetachat/api/handlers/twitter"
	"gacetachat/internal/config"
	"gacetachat/internal/counter"
	"gacetachat/internal/execution"
	"gacetachat/internal/gaceta"
	"gacetachat/internal/infra"
	"gacetachat/internal/infra/queue"
	"gacetachat/internal/logger"
	"gacetachat/internal/metrics"
	"gacetachat/internal/qa"
	"gacetachat/internal/social"
	"gacetachat/internal/template"
	"gacetachat/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handlers 聚合所有 HTTP Handler
type Handlers struct {
	Template *templates.TemplateHandler
	Gaceta   *gacetas.GacetaHandler
	Session  *sessions.SessionHandler
	Chat     *chat.ChatHandler
	Twitter  *twitterHandlers.TwitterHandler
}

// SetupRouter 组装全部依赖，返回 Gin 路由、Worker 服务器与调度器
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *worker.Server, *worker.Scheduler) {
	router := gin.New()

	// 统一归一化 Redis 配置，优先使用 cfg.Redis，再回退到环境变量
	redisCfg := normalizeRedisConfig(cfg.Redis)
	cfg.Redis = redisCfg

	// 初始化队列客户端与 Redis 客户端
	queueClient := queue.NewClient(redisCfg)
	redisClient, err := infra.InitRedis(&redisCfg)
	if err != nil {
		logger.Fatal("Redis 初始化失败", zap.Error(err))
	}

	// OpenAI 客户端
	openaiCfg := openai.DefaultConfig(cfg.AI.OpenAI.APIKey)
	if cfg.AI.OpenAI.BaseURL != "" {
		openaiCfg.BaseURL = cfg.AI.OpenAI.BaseURL
	}
	openaiClient := openai.NewClientWithConfig(openaiCfg)

	// 检索问答组件
	embedder := qa.NewOpenAIEmbeddingProvider(openaiClient, cfg.AI.OpenAI.EmbeddingModel)
	chunkStore, err := qa.NewChunkStore(db)
	if err != nil {
		logger.Fatal("向量存储初始化失败", zap.Error(err))
	}
	trimmer, err := qa.NewTokenTrimmer("", cfg.QA.ContextTokens)
	if err != nil {
		logger.Fatal("token 裁剪器初始化失败", zap.Error(err))
	}
	answerer := qa.NewRAGAnswerer(qa.RAGAnswererConfig{
		Client:      openaiClient,
		Embedder:    embedder,
		Store:       chunkStore,
		Trimmer:     trimmer,
		Model:       cfg.AI.OpenAI.Model,
		Temperature: cfg.AI.OpenAI.Temperature,
		MaxTokens:   cfg.AI.OpenAI.MaxTokens,
		TopK:        cfg.QA.TopK,
	})

	// 公报抓取与索引
	scraper := gaceta.NewScraper(cfg.Gaceta.BaseURL)
	gacetaService, err := gaceta.NewService(db, scraper, cfg.Gaceta.DownloadDir, cfg.Gaceta.Timezone)
	if err != nil {
		logger.Fatal("公报服务初始化失败", zap.Error(err))
	}
	indexer := qa.NewIndexer(gacetaService, qa.NewChunker(1500, 200), embedder, chunkStore)

	// 模板与执行引擎
	templateService := template.NewService(db)
	engine := execution.NewEngine(db, answerer,
		execution.WithAnswerTimeout(time.Duration(cfg.QA.AnswerTimeout)*time.Second),
	)
	viewer := execution.NewViewer(db)

	// 预置每日模板，重复启动时幂等
	if _, err := templateService.SeedPreset(context.Background()); err != nil {
		logger.Warn("预置模板初始化失败", zap.Error(err))
	}

	// Twitter 发布链路
	tokenStore := social.NewTokenStore(redisClient)
	twitterClient := social.NewTwitterClient(
		cfg.Twitter.ClientID,
		cfg.Twitter.ClientSecret,
		cfg.Twitter.RedirectURL,
		tokenStore,
	)
	approvalService := social.NewService(db, engine, twitterClient)

	// 每日问答配额
	queryCounter := counter.NewDailyQueryCounter(redisClient, cfg.QA.DailyQueryLimit)

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(CORS())
	router.Use(metrics.PrometheusMiddleware())

	// 公开端点（不需要认证）
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 初始化 Handlers
	handlers := &Handlers{
		Template: templates.NewTemplateHandler(templateService),
		Gaceta:   gacetas.NewGacetaHandler(gacetaService, queueClient),
		Session:  sessions.NewSessionHandler(engine, viewer, templateService, approvalService, queueClient),
		Chat:     chat.NewChatHandler(answerer, gacetaService, queryCounter),
		Twitter:  twitterHandlers.NewTwitterHandler(twitterClient, redisClient),
	}
	RegisterRoutes(router, cfg.APIKey, handlers)

	// Worker 服务器与定时调度器
	workerServer := worker.NewServer(redisCfg, gacetaService, indexer, engine, templateService, viewer, logger.Get())
	scheduler, err := worker.NewScheduler(redisCfg, cfg.Gaceta, logger.Get())
	if err != nil {
		logger.Fatal("调度器初始化失败", zap.Error(err))
	}

	return router, workerServer, scheduler
}
