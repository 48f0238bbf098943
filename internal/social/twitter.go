package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const tweetsEndpoint = "https://api.twitter.com/2/tweets"

// 推文长度上限（Twitter API v2 标准账号）
const maxTweetLength = 280

// TwitterClient Twitter API v2 客户端，OAuth2 授权码模式
type TwitterClient struct {
	oauth  *oauth2.Config
	tokens *TokenStore
}

// NewTwitterClient 创建 TwitterClient 实例
func NewTwitterClient(clientID, clientSecret, redirectURL string, tokens *TokenStore) *TwitterClient {
	return &TwitterClient{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://twitter.com/i/oauth2/authorize",
				TokenURL: "https://api.twitter.com/2/oauth2/token",
			},
		},
		tokens: tokens,
	}
}

// AuthorizeURL 生成授权跳转地址
func (c *TwitterClient) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode 用授权码换取令牌并持久化
func (c *TwitterClient) ExchangeCode(ctx context.Context, code string) error {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("交换Twitter授权码失败: %w", err)
	}
	return c.tokens.Save(ctx, token)
}

// PostTweet 发布一条推文，超长时截断到上限
func (c *TwitterClient) PostTweet(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("推文内容不能为空")
	}
	if len([]rune(text)) > maxTweetLength {
		text = string([]rune(text)[:maxTweetLength])
	}

	token, err := c.tokens.Load(ctx)
	if err != nil {
		return "", err
	}
	// TokenSource 过期时自动走 refresh 流程，换新后回写存储
	source := c.oauth.TokenSource(ctx, token)
	fresh, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("刷新Twitter令牌失败: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		if err := c.tokens.Save(ctx, fresh); err != nil {
			return "", err
		}
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("序列化推文失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tweetsEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("构建推文请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := oauth2.NewClient(ctx, oauth2.StaticTokenSource(fresh)).Do(req)
	if err != nil {
		return "", fmt.Errorf("发布推文失败: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("发布推文失败: status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("解析推文响应失败: %w", err)
	}
	return parsed.Data.ID, nil
}
