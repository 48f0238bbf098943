package qa

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyCompletion 上游模型返回空结果
var ErrEmptyCompletion = errors.New("模型返回空结果")

// DocumentContext 检索作答的文档上下文，限定到一份公报的索引
type DocumentContext struct {
	GacetaID uint
	Date     time.Time
}

// Overrides 单次调用的可选参数覆盖，仅对本次生效
type Overrides struct {
	Model       string
	Temperature *float32
	MaxTokens   int
}

// Result 一次问答的结果
// RawPrompt 是实际发送给模型的完整 prompt（已拼接检索上下文）
type Result struct {
	RawPrompt string
	Answer    string
	Sources   []string
}

// Answerer 检索/LLM 适配器
// doc 为 nil 时退化为不带检索的普通模型问答
type Answerer interface {
	Answer(ctx context.Context, query string, doc *DocumentContext, ov *Overrides) (*Result, error)
}

// AdapterError 适配器层错误：索引缺失、超时、上游模型错误等
// 编排器在单个 prompt 边界捕获它并转成 FAILED 日志，绝不向批次调用方传播
type AdapterError struct {
	Stage string // embed, search, completion, index
	Err   error
}

// Error 实现 error 接口
func (e *AdapterError) Error() string {
	return fmt.Sprintf("适配器调用失败(%s): %v", e.Stage, e.Err)
}

// Unwrap 支持 errors.Is/As
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError 创建适配器错误
func NewAdapterError(stage string, err error) *AdapterError {
	return &AdapterError{Stage: stage, Err: err}
}
