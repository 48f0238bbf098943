package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gacetachat/internal/gaceta"
	"gacetachat/internal/qa"
	"gacetachat/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type GacetaHandler struct {
	gacetas *gaceta.Service
	indexer *qa.Indexer
	logger  *zap.Logger
}

func NewGacetaHandler(gacetas *gaceta.Service, indexer *qa.Indexer, logger *zap.Logger) *GacetaHandler {
	return &GacetaHandler{
		gacetas: gacetas,
		indexer: indexer,
		logger:  logger,
	}
}

// HandleDownloadGaceta 下载公报并建立向量索引
func (h *GacetaHandler) HandleDownloadGaceta(ctx context.Context, t *asynq.Task) error {
	var p tasks.DownloadGacetaPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}

	date, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return fmt.Errorf("解析公报日期失败: %w", err)
	}

	h.logger.Info("开始下载公报", zap.String("date", p.Date))

	g, err := h.gacetas.DownloadForDate(ctx, date)
	if err != nil {
		h.logger.Error("公报下载失败", zap.String("date", p.Date), zap.Error(err))
		return err
	}

	if err := h.indexer.IndexGaceta(ctx, g); err != nil {
		h.logger.Error("公报索引失败", zap.Uint("gaceta_id", g.ID), zap.Error(err))
		return err
	}

	h.logger.Info("公报下载与索引完成", zap.Uint("gaceta_id", g.ID))
	return nil
}
