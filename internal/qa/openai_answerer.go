package qa

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// RAGAnswerer 基于 OpenAI 的问答实现
// 带文档上下文时走检索增强路径，否则直接普通补全
type RAGAnswerer struct {
	client      *openai.Client
	embedder    EmbeddingProvider
	store       *ChunkStore
	trimmer     *TokenTrimmer
	model       string
	temperature float32
	maxTokens   int
	topK        int
}

// RAGAnswererConfig RAGAnswerer 构造参数
type RAGAnswererConfig struct {
	Client      *openai.Client
	Embedder    EmbeddingProvider
	Store       *ChunkStore
	Trimmer     *TokenTrimmer
	Model       string
	Temperature float32
	MaxTokens   int
	TopK        int
}

// NewRAGAnswerer 创建 RAGAnswerer 实例
func NewRAGAnswerer(cfg RAGAnswererConfig) *RAGAnswerer {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &RAGAnswerer{
		client:      cfg.Client,
		embedder:    cfg.Embedder,
		store:       cfg.Store,
		trimmer:     cfg.Trimmer,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		topK:        topK,
	}
}

// Answer 生成问答结果
// doc 非空时检索该公报切块并带引用作答，为空时直接补全
func (a *RAGAnswerer) Answer(ctx context.Context, query string, doc *DocumentContext, ov *Overrides) (*Result, error) {
	if doc != nil {
		return a.answerWithDocument(ctx, query, doc, ov)
	}
	return a.answerPlain(ctx, query, ov)
}

func (a *RAGAnswerer) answerWithDocument(ctx context.Context, query string, doc *DocumentContext, ov *Overrides) (*Result, error) {
	queryVector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, NewAdapterError("embed", err)
	}

	results, err := a.store.Search(ctx, doc.GacetaID, queryVector, a.topK)
	if err != nil {
		return nil, NewAdapterError("search", err)
	}
	if a.trimmer != nil {
		results = a.trimmer.TrimToLimit(results)
	}

	prompt := buildStuffPrompt(query, doc.GacetaID, results)
	output, err := a.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, ov)
	if err != nil {
		return nil, NewAdapterError("completion", err)
	}

	answer, sources := splitAnswerSources(output)
	return &Result{
		RawPrompt: prompt,
		Answer:    answer,
		Sources:   sources,
	}, nil
}

func (a *RAGAnswerer) answerPlain(ctx context.Context, query string, ov *Overrides) (*Result, error) {
	output, err := a.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: plainSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: query},
	}, ov)
	if err != nil {
		return nil, NewAdapterError("completion", err)
	}

	return &Result{
		RawPrompt: query,
		Answer:    output,
		Sources:   []string{},
	}, nil
}

func (a *RAGAnswerer) complete(ctx context.Context, messages []openai.ChatCompletionMessage, ov *Overrides) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Messages:    messages,
	}
	if ov != nil {
		if ov.Model != "" {
			req.Model = ov.Model
		}
		if ov.Temperature != nil {
			req.Temperature = *ov.Temperature
		}
		if ov.MaxTokens > 0 {
			req.MaxTokens = ov.MaxTokens
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
