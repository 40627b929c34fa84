package model

// ChunkHit 代表一次相似度检索命中的文本分块。
type ChunkHit struct {
	// Position 是分块在本次索引构建中的位置序号，从 0 开始。
	Position    int     `json:"position"`
	TextContent string  `json:"textContent"`
	Score       float64 `json:"score"`
}
