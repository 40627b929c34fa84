// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"

	"chatpdf-go/internal/chunker"
	"chatpdf-go/internal/extractor"
	"chatpdf-go/internal/index"
	"chatpdf-go/internal/model"
	"chatpdf-go/internal/session"
	"chatpdf-go/pkg/embedding"
	"chatpdf-go/pkg/log"
)

// 一次 Embedding API 调用的最大分块数。
const embedBatchSize = 32

// IndexFactory 为一次索引构建创建新的空索引实例。
type IndexFactory func(sessionID string) index.Index

// IngestResult 汇总一次文档导入的结果。
type IngestResult struct {
	DocumentCount int `json:"documentCount"`
	ChunkCount    int `json:"chunkCount"`
}

// IngestService 接口定义了文档导入与索引构建操作。
type IngestService interface {
	// IngestDocuments 解析一批文档并为会话重建向量索引。
	// 新上传总是重置会话：旧索引与对话历史被整体丢弃。
	// 任何一步失败都不会触碰会话的既有状态。
	IngestDocuments(ctx context.Context, sess *session.Session, docs []model.Document) (*IngestResult, error)
}

type ingestService struct {
	extractor       *extractor.Extractor
	splitter        *chunker.Splitter
	embeddingClient embedding.Client
	newIndex        IndexFactory
	history         session.HistoryStore
}

// NewIngestService 创建一个新的 IngestService 实例。
func NewIngestService(
	ext *extractor.Extractor,
	splitter *chunker.Splitter,
	embeddingClient embedding.Client,
	newIndex IndexFactory,
	history session.HistoryStore,
) IngestService {
	return &ingestService{
		extractor:       ext,
		splitter:        splitter,
		embeddingClient: embeddingClient,
		newIndex:        newIndex,
		history:         history,
	}
}

// IngestDocuments 是文档导入的主流程。
func (s *ingestService) IngestDocuments(ctx context.Context, sess *session.Session, docs []model.Document) (*IngestResult, error) {
	log.Infof("[Ingest] 开始处理文档导入, 会话: %s, 文档数: %d", sess.ID, len(docs))

	// 1. 提取文本
	log.Info("[Ingest] 步骤1: 提取文档文本")
	text, err := s.extractor.ExtractAll(docs)
	if err != nil {
		log.Errorf("[Ingest] 文档提取失败, 会话: %s, error: %v", sess.ID, err)
		return nil, err
	}
	log.Infof("[Ingest] 步骤1: 文本提取完成, 总长度: %d 字符", len(text))

	// 2. 文本切块
	log.Info("[Ingest] 步骤2: 进行文本分块")
	chunks := s.splitter.Split(text)
	log.Infof("[Ingest] 步骤2: 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 3. 向量化并构建新索引。任何分块失败都会丢弃整个构建，
	// 不会留下部分索引，旧索引保持可用。
	newIdx := s.newIndex(sess.ID)
	if len(chunks) > 0 {
		log.Info("[Ingest] 步骤3: 开始分批向量化并写入索引")
		if err := s.embedAndAdd(ctx, newIdx, chunks); err != nil {
			_ = newIdx.Close()
			log.Errorf("[Ingest] 索引构建失败, 会话: %s, error: %v", sess.ID, err)
			return nil, err
		}
		log.Infof("[Ingest] 步骤3: 索引构建完成, 共 %d 个分块", newIdx.Size())
	} else {
		// 空文档集不是错误：会话进入无内容可检索的就绪状态
		log.Warnf("[Ingest] 未生成任何文本分块, 会话 %s 将持有空索引", sess.ID)
	}

	// 4. 原子替换会话状态：新索引生效，历史清空
	sess.Lock()
	sess.ReplaceIndex(newIdx)
	sess.Unlock()
	if err := s.history.Reset(ctx, sess.ID); err != nil {
		log.Warnf("[Ingest] 重置会话 %s 的历史失败: %v", sess.ID, err)
	}

	log.Infof("[Ingest] 文档导入成功完成, 会话: %s", sess.ID)
	return &IngestResult{
		DocumentCount: len(docs),
		ChunkCount:    len(chunks),
	}, nil
}

// embedAndAdd 分批调用 Embedding 服务并把结果写入索引。
func (s *ingestService) embedAndAdd(ctx context.Context, idx index.Index, chunks []string) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		log.Infof("[Ingest] 正在向量化分块 %d-%d / %d", start+1, end, len(chunks))

		vectors, err := s.embeddingClient.CreateEmbeddings(ctx, batch)
		if err != nil {
			return fmt.Errorf("分块 %d-%d 向量化失败: %w", start+1, end, err)
		}
		if err := idx.Add(batch, vectors); err != nil {
			return fmt.Errorf("分块 %d-%d 写入索引失败: %w", start+1, end, err)
		}
	}
	return nil
}
