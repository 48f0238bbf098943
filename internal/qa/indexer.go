package qa

import (
	"context"
	"fmt"

	"gacetachat/internal/gaceta"
	"gacetachat/internal/logger"

	"go.uber.org/zap"
)

// Indexer 公报索引构建器：抽取 PDF 文本、切块、向量化并入库
type Indexer struct {
	gacetas  *gaceta.Service
	chunker  *Chunker
	embedder EmbeddingProvider
	store    *ChunkStore
}

// NewIndexer 创建 Indexer 实例
func NewIndexer(gacetas *gaceta.Service, chunker *Chunker, embedder EmbeddingProvider, store *ChunkStore) *Indexer {
	return &Indexer{
		gacetas:  gacetas,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
	}
}

// IndexGaceta 为一份公报建立向量索引，已建索引时直接返回
func (ix *Indexer) IndexGaceta(ctx context.Context, g *gaceta.GacetaPDF) error {
	if g.Indexed {
		return nil
	}
	if exists, err := ix.store.HasChunks(ctx, g.ID); err != nil {
		return err
	} else if exists {
		return ix.gacetas.MarkIndexed(ctx, g.ID)
	}

	text, err := gaceta.ExtractText(g.FilePath)
	if err != nil {
		return fmt.Errorf("抽取公报文本失败: %w", err)
	}

	chunks := ix.chunker.Split(text)
	if len(chunks) == 0 {
		return fmt.Errorf("公报无可索引文本: %d", g.ID)
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("公报切块向量化失败: %w", err)
	}

	if err := ix.store.AddChunks(ctx, g.ID, chunks, embeddings); err != nil {
		return err
	}
	if err := ix.gacetas.MarkIndexed(ctx, g.ID); err != nil {
		return err
	}

	logger.Info("公报索引构建完成",
		zap.Uint("gaceta_id", g.ID),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}
