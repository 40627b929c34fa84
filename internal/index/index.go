// Package index 实现了分块向量的相似度检索索引。
package index

import "chatpdf-go/internal/model"

// Index 是向量索引的统一接口。一个索引对应一次完整的构建：
// 构建成功后只读，重建需要创建新实例替换旧实例。
type Index interface {
	// Add 写入分块及其向量，二者按位置一一对应。
	// 只应在构建阶段调用一次；所有向量维度必须一致。
	Add(chunks []string, vectors [][]float32) error
	// Search 返回与查询向量最近的 k 个分块，按相似度降序排列，
	// 相同得分按分块位置升序。k 超过索引容量时返回全部分块；
	// 空索引返回空结果而不是错误。
	Search(vector []float32, k int) ([]model.ChunkHit, error)
	// Size 返回已索引的分块数量。
	Size() int
	// Close 释放索引占用的资源（对远端后端会删除其物理索引）。
	Close() error
}
