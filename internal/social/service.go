package social

import (
	"context"
	"errors"
	"fmt"

	"gacetachat/internal/execution"
	"gacetachat/internal/logger"
	"gacetachat/internal/template"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotApprovable 只有 EXECUTED 状态的会话才能被批准
	ErrNotApprovable = errors.New("会话当前状态不可批准")
	// ErrNoTweetText 会话结果里没有推文 prompt 的答案
	ErrNoTweetText = errors.New("会话未生成推文内容")
)

// Service 会话批准与发布服务
// 批准即发布：把会话的推文答案发到 Twitter，并把同一公报此前批准的会话标记过期
type Service struct {
	db      *gorm.DB
	engine  *execution.Engine
	twitter *TwitterClient
}

// NewService 创建 Service 实例
func NewService(db *gorm.DB, engine *execution.Engine, twitter *TwitterClient) *Service {
	return &Service{db: db, engine: engine, twitter: twitter}
}

// Approve 批准一个会话并发布其推文
// 重复批准同一会话直接返回当前状态，不重复发推
func (s *Service) Approve(ctx context.Context, sessionID string) (*execution.Session, error) {
	var session execution.Session
	if err := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("会话不存在: %s", sessionID)
		}
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}

	if session.Status == execution.StatusApproved {
		return &session, nil
	}
	if session.Status != execution.StatusExecuted {
		return nil, ErrNotApprovable
	}

	results, err := s.engine.ResolveSessionResults(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tweetText, ok := results[template.TwitterPromptAlias]
	if !ok || tweetText == "" {
		return nil, ErrNoTweetText
	}

	tweetID, err := s.twitter.PostTweet(ctx, tweetText)
	if err != nil {
		return nil, err
	}
	logger.Info("会话推文已发布",
		zap.String("session_id", sessionID),
		zap.String("tweet_id", tweetID),
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 同一公报之前批准的会话让位给新批准的
		if session.GacetaID != nil {
			if err := tx.Model(&execution.Session{}).
				Where("gaceta_id = ? AND status = ? AND id <> ?", *session.GacetaID, execution.StatusApproved, sessionID).
				Update("status", execution.StatusOutdated).Error; err != nil {
				return fmt.Errorf("标记过期会话失败: %w", err)
			}
		}
		if err := tx.Model(&execution.Session{}).
			Where("id = ?", sessionID).
			Updates(map[string]any{
				"status":      execution.StatusApproved,
				"is_approved": true,
			}).Error; err != nil {
			return fmt.Errorf("更新会话批准状态失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session.Status = execution.StatusApproved
	session.IsApproved = true
	return &session, nil
}
