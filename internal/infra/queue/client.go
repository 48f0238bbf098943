package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"gacetachat/internal/config"
	"gacetachat/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// Client 任务队列客户端接口
type Client interface {
	EnqueueDownloadGaceta(date string) error
	EnqueueRunBatch(payload tasks.RunBatchPayload) error
	Close() error
}

type asynqClient struct {
	client *asynq.Client
}

// NewClient 创建任务队列客户端
func NewClient(cfg config.RedisConfig) Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &asynqClient{client: client}
}

func (c *asynqClient) EnqueueDownloadGaceta(date string) error {
	payload, err := json.Marshal(tasks.DownloadGacetaPayload{Date: date})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeDownloadGaceta, payload)

	// 下载加 PDF 解析与建索引耗时较长
	info, err := c.client.Enqueue(task,
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Queue("gaceta"),
	)
	if err != nil {
		return fmt.Errorf("enqueue task failed: %w", err)
	}

	_ = info
	return nil
}

func (c *asynqClient) EnqueueRunBatch(payload tasks.RunBatchPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeRunBatch, data)

	// 批量执行不自动重试：失败的 prompt 由人工触发重跑
	info, err := c.client.Enqueue(task,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("execution"),
	)
	if err != nil {
		return fmt.Errorf("enqueue task failed: %w", err)
	}

	_ = info
	return nil
}

func (c *asynqClient) Close() error {
	return c.client.Close()
}
