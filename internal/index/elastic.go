package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"chatpdf-go/internal/model"
	"chatpdf-go/pkg/es"
	"chatpdf-go/pkg/log"
)

// ElasticIndex 是基于 Elasticsearch dense_vector kNN 的索引后端。
// 每次构建对应一个独立的物理索引，Close 时删除。
type ElasticIndex struct {
	mu        sync.RWMutex
	indexName string
	created   bool
	size      int
}

// NewElasticIndex 创建一个尚未写入任何分块的 Elasticsearch 索引实例。
// 物理索引延迟到首次 Add 时创建（此时才知道向量维度）。
func NewElasticIndex(indexName string) *ElasticIndex {
	return &ElasticIndex{indexName: indexName}
}

// Add 创建物理索引并逐条写入分块文档。
func (e *ElasticIndex) Add(chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("分块与向量数量不一致: %d != %d", len(chunks), len(vectors))
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx := context.Background()
	if len(chunks) == 0 {
		return nil
	}

	if !e.created {
		if err := es.CreateVectorIndex(ctx, e.indexName, len(vectors[0])); err != nil {
			return fmt.Errorf("创建向量索引失败: %w", err)
		}
		e.created = true
	}

	for i := range chunks {
		doc := es.ChunkDocument{
			Position:    e.size + i,
			TextContent: chunks[i],
			Vector:      vectors[i],
		}
		if err := es.IndexChunk(ctx, e.indexName, doc); err != nil {
			return fmt.Errorf("索引分块 %d 失败: %w", doc.Position, err)
		}
	}
	e.size += len(chunks)
	return nil
}

// Search 在物理索引上执行 kNN 检索。
func (e *ElasticIndex) Search(vector []float32, k int) ([]model.ChunkHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k 必须不小于 1, 当前为 %d", k)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.size == 0 {
		return []model.ChunkHit{}, nil
	}
	if k > e.size {
		k = e.size
	}

	knnHits, err := es.SearchKNN(context.Background(), e.indexName, vector, k)
	if err != nil {
		return nil, err
	}

	hits := make([]model.ChunkHit, 0, len(knnHits))
	for _, h := range knnHits {
		hits = append(hits, model.ChunkHit{
			Position:    h.Position,
			TextContent: h.TextContent,
			Score:       h.Score,
		})
	}
	// ES 对同分文档的顺序不作保证，这里补一次确定性排序
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Position < hits[b].Position
	})
	return hits, nil
}

// Size 返回已索引的分块数量。
func (e *ElasticIndex) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.size
}

// Close 删除构建出的物理索引。
func (e *ElasticIndex) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.created {
		return nil
	}
	if err := es.DeleteIndex(context.Background(), e.indexName); err != nil {
		log.Errorf("删除向量索引 '%s' 失败: %v", e.indexName, err)
		return err
	}
	e.created = false
	e.size = 0
	return nil
}
