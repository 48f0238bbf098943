package gaceta

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gacetachat/internal/logger"
	"gacetachat/internal/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 公报获取与持久化服务
type Service struct {
	db          *gorm.DB
	scraper     *Scraper
	downloadDir string
	location    *time.Location
}

// NewService 创建 Service 实例
// timezone 用于决定“今天”的公报日期，默认 America/Costa_Rica
func NewService(db *gorm.DB, scraper *Scraper, downloadDir, timezone string) (*Service, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}
	return &Service{
		db:          db,
		scraper:     scraper,
		downloadDir: downloadDir,
		location:    loc,
	}, nil
}

// Today 返回哥斯达黎加时区的当日日期（零点，UTC 存储）
func (s *Service) Today() time.Time {
	now := time.Now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// DownloadForDate 下载指定日期的公报并入库，已存在时直接返回
// 官网仅提供当日刊，非当日日期只做查库
func (s *Service) DownloadForDate(ctx context.Context, date time.Time) (*GacetaPDF, error) {
	date = truncateToDay(date)

	if existing, err := s.FindByDate(ctx, date); err == nil {
		logger.Info("公报已存在，跳过下载", zap.Time("date", date))
		return existing, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if !date.Equal(s.Today()) {
		return nil, fmt.Errorf("历史公报无法补抓: %s", date.Format("2006-01-02"))
	}

	pdfURL, err := s.scraper.FetchPDFURL(ctx)
	if err != nil {
		metrics.GacetaDownloadsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("抓取公报链接失败: %w", err)
	}

	data, err := s.scraper.DownloadPDF(ctx, pdfURL)
	if err != nil {
		metrics.GacetaDownloadsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	dateStr := date.Format("2006-01-02")
	dir := filepath.Join(s.downloadDir, dateStr)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建下载目录失败: %w", err)
	}
	filePath := filepath.Join(dir, "gaceta.pdf")
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("写入 PDF 文件失败: %w", err)
	}

	g := &GacetaPDF{
		PublishedAt: date,
		FilePath:    filePath,
		SourceURL:   pdfURL,
	}
	if err := s.db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, fmt.Errorf("保存公报记录失败: %w", err)
	}

	metrics.GacetaDownloadsTotal.WithLabelValues("ok").Inc()
	logger.Info("公报下载完成",
		zap.Time("date", date),
		zap.String("file", filePath),
	)
	return g, nil
}

// MarkIndexed 标记公报已建立向量索引
func (s *Service) MarkIndexed(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).
		Model(&GacetaPDF{}).
		Where("id = ?", id).
		Update("indexed", true).Error; err != nil {
		return fmt.Errorf("标记索引状态失败: %w", err)
	}
	return nil
}

// FindByID 按 ID 查询公报
func (s *Service) FindByID(ctx context.Context, id uint) (*GacetaPDF, error) {
	var g GacetaPDF
	if err := s.db.WithContext(ctx).First(&g, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("公报不存在: %d", id)
		}
		return nil, fmt.Errorf("查询公报失败: %w", err)
	}
	return &g, nil
}

// FindByDate 按公报日期查询
func (s *Service) FindByDate(ctx context.Context, date time.Time) (*GacetaPDF, error) {
	date = truncateToDay(date)
	var g GacetaPDF
	err := s.db.WithContext(ctx).
		Where("published_at >= ? AND published_at < ?", date, date.AddDate(0, 0, 1)).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// List 按日期倒序列出公报
func (s *Service) List(ctx context.Context, limit int) ([]GacetaPDF, error) {
	if limit <= 0 {
		limit = 50
	}
	var gacetas []GacetaPDF
	if err := s.db.WithContext(ctx).
		Order("published_at DESC").
		Limit(limit).
		Find(&gacetas).Error; err != nil {
		return nil, fmt.Errorf("查询公报列表失败: %w", err)
	}
	return gacetas, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
