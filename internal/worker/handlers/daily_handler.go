package handlers

import (
	"context"

	"gacetachat/internal/execution"
	"gacetachat/internal/gaceta"
	"gacetachat/internal/qa"
	"gacetachat/internal/template"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// DailyHandler 每日任务：下载当日公报、建索引、跑预置模板批次
// 任务按 cron 反复触发，每一步都是幂等的，已完成的步骤直接跳过
type DailyHandler struct {
	gacetas   *gaceta.Service
	indexer   *qa.Indexer
	engine    *execution.Engine
	templates *template.Service
	viewer    *execution.Viewer
	logger    *zap.Logger
}

func NewDailyHandler(
	gacetas *gaceta.Service,
	indexer *qa.Indexer,
	engine *execution.Engine,
	templates *template.Service,
	viewer *execution.Viewer,
	logger *zap.Logger,
) *DailyHandler {
	return &DailyHandler{
		gacetas:   gacetas,
		indexer:   indexer,
		engine:    engine,
		templates: templates,
		viewer:    viewer,
		logger:    logger,
	}
}

// HandleDailyRun 当日公报流水线
func (h *DailyHandler) HandleDailyRun(ctx context.Context, t *asynq.Task) error {
	today := h.gacetas.Today()
	h.logger.Info("每日任务触发", zap.Time("date", today))

	g, err := h.gacetas.DownloadForDate(ctx, today)
	if err != nil {
		// 当日刊可能尚未发布，等下一次触发重试
		h.logger.Warn("当日公报暂不可用", zap.Time("date", today), zap.Error(err))
		return err
	}

	if err := h.indexer.IndexGaceta(ctx, g); err != nil {
		h.logger.Error("公报索引失败", zap.Uint("gaceta_id", g.ID), zap.Error(err))
		return err
	}

	// 当日已有成功会话时不再重跑
	last, err := h.viewer.LastSessionForGaceta(ctx, g.ID)
	if err != nil {
		return err
	}
	if last != nil && (last.Status == execution.StatusExecuted || last.Status == execution.StatusApproved) {
		h.logger.Info("当日批次已完成，跳过", zap.String("session_id", last.ID))
		return nil
	}

	preset, err := h.templates.PresetTemplate(ctx)
	if err != nil {
		return err
	}

	sessionID, err := h.engine.ExecuteTemplate(ctx, nil, preset.ID, &g.ID, false)
	if err != nil {
		h.logger.Error("每日批次执行失败", zap.Uint("gaceta_id", g.ID), zap.Error(err))
		return err
	}

	h.logger.Info("每日批次完成",
		zap.Uint("gaceta_id", g.ID),
		zap.String("session_id", sessionID),
	)
	return nil
}
