package qa

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// EmbeddingProvider 文本向量化接口
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbeddingProvider OpenAI 向量化实现
type OpenAIEmbeddingProvider struct {
	client *openai.Client
	model  string // 默认 text-embedding-3-small
}

// NewOpenAIEmbeddingProvider 创建 OpenAI 向量化提供者
func NewOpenAIEmbeddingProvider(client *openai.Client, model string) *OpenAIEmbeddingProvider {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbeddingProvider{
		client: client,
		model:  model,
	}
}

// Embed 将文本转换为向量
func (p *OpenAIEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("文本不能为空")
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("调用OpenAI Embeddings API失败: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("OpenAI API返回空向量")
	}

	return resp.Data[0].Embedding, nil
}

// EmbedBatch 批量向量化文本
// OpenAI API 限制每次请求最多2048个输入，超过时分批
func (p *OpenAIEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	const batchSize = 2048
	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[i:end],
			Model: openai.EmbeddingModel(p.model),
		})
		if err != nil {
			return nil, fmt.Errorf("批量向量化失败(batch %d-%d): %w", i, end, err)
		}
		if len(resp.Data) != end-i {
			return nil, fmt.Errorf("OpenAI API返回向量数量不匹配: 期望%d, 实际%d", end-i, len(resp.Data))
		}

		for _, data := range resp.Data {
			allEmbeddings = append(allEmbeddings, data.Embedding)
		}
	}

	return allEmbeddings, nil
}
