package qa

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// GacetaChunk 公报文本切块及其向量
type GacetaChunk struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	GacetaID   uint            `json:"gaceta_id" gorm:"index;not null"`
	ChunkIndex int             `json:"chunk_index" gorm:"not null"`
	Content    string          `json:"content" gorm:"type:text;not null"`
	Embedding  pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
	CreatedAt  time.Time       `json:"created_at"`
}

// TableName 指定表名
func (GacetaChunk) TableName() string {
	return "gaceta_chunks"
}

// SearchResult 相似检索结果
type SearchResult struct {
	ChunkIndex int
	Content    string
	Similarity float64
}

// ChunkStore 基于 PostgreSQL pgvector 扩展的公报切块存储
type ChunkStore struct {
	db *gorm.DB
}

// NewChunkStore 创建 ChunkStore 实例
func NewChunkStore(db *gorm.DB) (*ChunkStore, error) {
	store := &ChunkStore{db: db}

	// 确保 pgvector 扩展已启用
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("确保pgvector扩展失败: %w", err)
	}

	return store, nil
}

// AddChunks 批量写入切块，单事务
func (s *ChunkStore) AddChunks(ctx context.Context, gacetaID uint, contents []string, embeddings [][]float32) error {
	if len(contents) != len(embeddings) {
		return fmt.Errorf("切块与向量数量不匹配: %d vs %d", len(contents), len(embeddings))
	}
	if len(contents) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, content := range contents {
			chunk := &GacetaChunk{
				GacetaID:   gacetaID,
				ChunkIndex: i,
				Content:    content,
				Embedding:  pgvector.NewVector(embeddings[i]),
			}
			if err := tx.Create(chunk).Error; err != nil {
				return fmt.Errorf("写入切块失败: %w", err)
			}
		}
		return nil
	})
}

// Search 在指定公报范围内做余弦相似检索
// <=> 是 pgvector 的余弦距离操作符，1 - 距离即相似度
func (s *ChunkStore) Search(ctx context.Context, gacetaID uint, queryVector []float32, topK int) ([]SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("查询向量不能为空")
	}
	if topK <= 0 {
		topK = 5
	}

	query := `
		SELECT
			chunk_index,
			content,
			1 - (embedding <=> $1::vector) AS similarity
		FROM gaceta_chunks
		WHERE gaceta_id = $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3
	`

	var results []SearchResult
	if err := s.db.WithContext(ctx).
		Raw(query, pgvector.NewVector(queryVector), gacetaID, topK).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("向量搜索失败: %w", err)
	}

	return results, nil
}

// HasChunks 判断公报是否已建立索引
func (s *ChunkStore) HasChunks(ctx context.Context, gacetaID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&GacetaChunk{}).
		Where("gaceta_id = ?", gacetaID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("查询切块数量失败: %w", err)
	}
	return count > 0, nil
}
