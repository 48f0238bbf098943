package qa

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenTrimmer 基于 tiktoken 的上下文裁剪器
// 保证塞入提示词的文档切块总 token 数不超过上限
type TokenTrimmer struct {
	encoding *tiktoken.Tiktoken
	limit    int
}

// NewTokenTrimmer 创建裁剪器，encodingName 默认 cl100k_base
func NewTokenTrimmer(encodingName string, limit int) (*TokenTrimmer, error) {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	if limit <= 0 {
		limit = 6000
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("加载token编码失败: %w", err)
	}
	return &TokenTrimmer{encoding: enc, limit: limit}, nil
}

// CountTokens 统计文本 token 数
func (t *TokenTrimmer) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// TrimToLimit 按相关度顺序保留切块，累计 token 超限后丢弃其余
// 超限的单个切块也会被整块丢弃而非截断
func (t *TokenTrimmer) TrimToLimit(results []SearchResult) []SearchResult {
	kept := make([]SearchResult, 0, len(results))
	total := 0
	for _, r := range results {
		n := t.CountTokens(r.Content)
		if total+n > t.limit {
			break
		}
		total += n
		kept = append(kept, r)
	}
	return kept
}
