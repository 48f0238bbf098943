package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

const (
	accessTokenKey  = "twitter:access_token"
	refreshTokenKey = "twitter:refresh_token"

	accessTokenTTL = time.Hour
)

// ErrNotAuthorized 尚未完成 Twitter 授权
var ErrNotAuthorized = errors.New("尚未完成Twitter授权")

// TokenStore 基于 Redis 的 OAuth2 令牌存储
// access token 带 TTL 过期，refresh token 长期保留
type TokenStore struct {
	rdb *redis.Client
}

// NewTokenStore 创建 TokenStore 实例
func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

// Save 持久化一组令牌
func (s *TokenStore) Save(ctx context.Context, token *oauth2.Token) error {
	if err := s.rdb.Set(ctx, accessTokenKey, token.AccessToken, accessTokenTTL).Err(); err != nil {
		return fmt.Errorf("保存access token失败: %w", err)
	}
	if token.RefreshToken != "" {
		if err := s.rdb.Set(ctx, refreshTokenKey, token.RefreshToken, 0).Err(); err != nil {
			return fmt.Errorf("保存refresh token失败: %w", err)
		}
	}
	return nil
}

// Load 读取当前令牌，access token 已过期时仅返回 refresh token
func (s *TokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	access, err := s.rdb.Get(ctx, accessTokenKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("读取access token失败: %w", err)
	}

	refresh, err := s.rdb.Get(ctx, refreshTokenKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("读取refresh token失败: %w", err)
	}

	if access == "" && refresh == "" {
		return nil, ErrNotAuthorized
	}

	token := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
	}
	if access == "" {
		// 触发 oauth2.TokenSource 用 refresh token 换新
		token.Expiry = time.Now().Add(-time.Minute)
	}
	return token, nil
}
