package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"chatpdf-go/internal/model"
)

// MemoryIndex 是进程内的精确最近邻索引，余弦相似度暴力检索。
// 在每会话几千个分块的规模下完全够用，并且排序结果可严格确定。
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	chunks    []string
	vectors   [][]float32
}

// NewMemoryIndex 创建一个空的内存索引。
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add 写入分块及其向量。
func (m *MemoryIndex) Add(chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("分块与向量数量不一致: %d != %d", len(chunks), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("分块 %d 的向量为空", i)
		}
		if m.dimension == 0 && i == 0 && len(m.vectors) == 0 {
			m.dimension = len(v)
		}
		if len(v) != m.dimension {
			return fmt.Errorf("分块 %d 的向量维度不一致: %d != %d", i, len(v), m.dimension)
		}
	}
	m.chunks = append(m.chunks, chunks...)
	m.vectors = append(m.vectors, vectors...)
	return nil
}

// Search 余弦相似度暴力检索。
func (m *MemoryIndex) Search(vector []float32, k int) ([]model.ChunkHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k 必须不小于 1, 当前为 %d", k)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.vectors) == 0 {
		return []model.ChunkHit{}, nil
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("查询向量维度不一致: %d != %d", len(vector), m.dimension)
	}

	hits := make([]model.ChunkHit, 0, len(m.vectors))
	for i, v := range m.vectors {
		hits = append(hits, model.ChunkHit{
			Position:    i,
			TextContent: m.chunks[i],
			Score:       cosine(vector, v),
		})
	}

	// 初始序即位置序，稳定排序保证同分时低位置在前
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Size 返回已索引的分块数量。
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// Close 对内存索引无事可做。
func (m *MemoryIndex) Close() error {
	return nil
}

// cosine 计算两个向量的余弦相似度，零向量返回 0。
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
