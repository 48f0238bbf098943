package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"gacetachat/internal/execution"
	"gacetachat/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type ExecutionHandler struct {
	engine *execution.Engine
	logger *zap.Logger
}

func NewExecutionHandler(engine *execution.Engine, logger *zap.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		engine: engine,
		logger: logger,
	}
}

// HandleRunBatch 执行一个会话的 prompt 批次
func (h *ExecutionHandler) HandleRunBatch(ctx context.Context, t *asynq.Task) error {
	var p tasks.RunBatchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}

	h.logger.Info("开始执行批次", zap.String("session_id", p.SessionID))

	if _, err := h.engine.RunBatch(ctx, p.SessionID, p.ReExecuteAll); err != nil {
		h.logger.Error("批次执行失败", zap.String("session_id", p.SessionID), zap.Error(err))
		return err
	}

	h.logger.Info("批次执行完成", zap.String("session_id", p.SessionID))
	return nil
}
