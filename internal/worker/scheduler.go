package worker

import (
	"fmt"
	"time"

	"gacetachat/internal/config"
	"gacetachat/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Scheduler 周期任务调度器
// 按哥斯达黎加时区的 cron 表达式投递每日公报任务
type Scheduler struct {
	scheduler *asynq.Scheduler
	cron      string
	logger    *zap.Logger
}

// NewScheduler 创建调度器
func NewScheduler(redisCfg config.RedisConfig, gacetaCfg config.GacetaConfig, logger *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(gacetaCfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     fmt.Sprintf("%s:%d", redisCfg.Host, redisCfg.Port),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		&asynq.SchedulerOpts{
			Location: loc,
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					logger.Error("定时任务投递失败", zap.Error(err))
				}
			},
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		cron:      gacetaCfg.Cron,
		logger:    logger,
	}, nil
}

// Start 注册任务并启动调度器（非阻塞）
func (s *Scheduler) Start() error {
	task := asynq.NewTask(tasks.TypeDailyRun, nil)
	entryID, err := s.scheduler.Register(s.cron, task,
		asynq.Queue("gaceta"),
		asynq.MaxRetry(2),
	)
	if err != nil {
		return fmt.Errorf("注册每日任务失败: %w", err)
	}
	s.logger.Info("每日任务已注册",
		zap.String("entry_id", entryID),
		zap.String("cron", s.cron),
	)

	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("启动调度器失败: %w", err)
	}
	return nil
}

// Shutdown 停止调度器
func (s *Scheduler) Shutdown() {
	s.logger.Info("调度器停止中...")
	s.scheduler.Shutdown()
}
