package worker

import (
	"context"
	"fmt"

	"gacetachat/internal/config"
	"gacetachat/internal/execution"
	"gacetachat/internal/gaceta"
	"gacetachat/internal/qa"
	"gacetachat/internal/template"
	"gacetachat/internal/worker/handlers"
	"gacetachat/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

func NewServer(
	cfg config.RedisConfig,
	gacetas *gaceta.Service,
	indexer *qa.Indexer,
	engine *execution.Engine,
	templates *template.Service,
	viewer *execution.Viewer,
	logger *zap.Logger,
) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: 10, // 并发 worker 数
			Queues: map[string]int{
				"execution": 6, // 批次执行优先级高
				"gaceta":    3, // 下载/索引优先级中
				"default":   1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("任务执行失败",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()

	// 注册公报处理器
	gacetaHandler := handlers.NewGacetaHandler(gacetas, indexer, logger)
	mux.HandleFunc(tasks.TypeDownloadGaceta, gacetaHandler.HandleDownloadGaceta)

	// 注册批次执行处理器
	executionHandler := handlers.NewExecutionHandler(engine, logger)
	mux.HandleFunc(tasks.TypeRunBatch, executionHandler.HandleRunBatch)

	// 注册每日任务处理器
	dailyHandler := handlers.NewDailyHandler(gacetas, indexer, engine, templates, viewer, logger)
	mux.HandleFunc(tasks.TypeDailyRun, dailyHandler.HandleDailyRun)

	return &Server{
		server: srv,
		mux:    mux,
		logger: logger,
	}
}

// Run 启动 Worker 服务器
func (s *Server) Run() error {
	s.logger.Info("Worker 服务器启动中...")
	return s.server.Run(s.mux)
}

// Start 非阻塞启动
func (s *Server) Start() error {
	s.logger.Info("Worker 服务器启动中 (后台)...")
	return s.server.Start(s.mux)
}

// Shutdown 停止 Worker 服务器
func (s *Server) Shutdown() {
	s.logger.Info("Worker 服务器停止中...")
	s.server.Shutdown()
}
