package model

import "errors"

// 统一的业务错误，供 handler 层映射为 HTTP 状态码。
// 所有错误均在会话级别可恢复，不会导致进程退出。
var (
	// ErrUnsupportedFormat 文件扩展名不是受支持的文档类型。
	ErrUnsupportedFormat = errors.New("不支持的文档格式")
	// ErrCorruptDocument 解析器无法读取文档结构。
	ErrCorruptDocument = errors.New("文档已损坏或无法解析")
	// ErrEmbeddingService 向量化服务不可达或返回了非法结果。
	ErrEmbeddingService = errors.New("向量化服务调用失败")
	// ErrGenerationService 生成服务不可达或返回了非法结果。
	ErrGenerationService = errors.New("生成服务调用失败")
	// ErrNoDocumentIndexed 会话中还没有构建任何索引。
	ErrNoDocumentIndexed = errors.New("当前会话尚未索引任何文档")
	// ErrSessionNotFound 会话不存在或已销毁。
	ErrSessionNotFound = errors.New("会话不存在")
)
