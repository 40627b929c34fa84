// Package embedding provides a client for interacting with embedding models.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chatpdf-go/internal/config"
	"chatpdf-go/internal/model"
	"chatpdf-go/pkg/log"
)

// Client defines the interface for an embedding client.
// 构建索引与查询检索必须使用同一个客户端实例（同一模型与维度），
// 混用不同向量空间会悄悄破坏相似度排序。
type Client interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

type openAICompatibleClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

// NewClient creates a new embedding client based on the config.
func NewClient(cfg config.EmbeddingConfig) Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// CreateEmbedding calls the OpenAI-compatible API to get the vector for a given text.
func (c *openAICompatibleClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CreateEmbeddings 批量向量化一组文本，返回与输入同序的向量列表。
func (c *openAICompatibleClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	log.Infof("[EmbeddingClient] 开始调用 Embedding API, model: %s, batch: %d", c.cfg.Model, len(texts))

	reqBody := embeddingRequest{
		Model:      c.cfg.Model,
		Input:      texts,
		Dimensions: c.cfg.Dimensions,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	// 网络调用允许重试一次（带短暂退避）后再上报错误
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			log.Warnf("[EmbeddingClient] 第 %d 次重试 Embedding API", attempt)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", model.ErrEmbeddingService, ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		vectors, retryable, callErr := c.doRequest(ctx, reqBytes, len(texts))
		if callErr == nil {
			return vectors, nil
		}
		lastErr = callErr
		if !retryable {
			break
		}
	}
	log.Errorf("[EmbeddingClient] 调用 Embedding API 失败: %v", lastErr)
	return nil, fmt.Errorf("%w: %v", model.ErrEmbeddingService, lastErr)
}

// doRequest 执行一次 HTTP 调用，返回向量、是否可重试以及错误。
func (c *openAICompatibleClient) doRequest(ctx context.Context, reqBytes []byte, expected int) ([][]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/embeddings", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to call embedding api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 5xx 视为临时故障可重试，4xx 直接失败
		retryable := resp.StatusCode >= http.StatusInternalServerError
		return nil, retryable, fmt.Errorf("embedding api returned non-200 status: %s", resp.Status)
	}

	var embeddingResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, false, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(embeddingResp.Data) != expected {
		return nil, false, fmt.Errorf("embedding api returned %d vectors, expected %d", len(embeddingResp.Data), expected)
	}

	vectors := make([][]float32, expected)
	for _, item := range embeddingResp.Data {
		if item.Index < 0 || item.Index >= expected || len(item.Embedding) == 0 {
			return nil, false, fmt.Errorf("received malformed embedding at index %d", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, false, fmt.Errorf("missing embedding for input %d", i)
		}
	}

	log.Infof("[EmbeddingClient] 成功从 Embedding API 获取 %d 个向量, 维度: %d", len(vectors), len(vectors[0]))
	return vectors, false, nil
}
