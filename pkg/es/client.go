// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"chatpdf-go/internal/config"
	"chatpdf-go/pkg/log"
)

var ESClient *elasticsearch.Client

// ChunkDocument 代表存储在会话向量索引中的单个分块。
type ChunkDocument struct {
	Position    int       `json:"position"`
	TextContent string    `json:"text_content"`
	Vector      []float32 `json:"vector"`
}

// InitES 初始化 Elasticsearch 客户端
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	log.Info("Elasticsearch 客户端初始化成功")
	return nil
}

// CreateVectorIndex 为一次会话索引构建创建独立的向量索引。
// 向量维度由 Embedding 服务决定，在整个索引生命周期内不变。
func CreateVectorIndex(ctx context.Context, indexName string, dims int) error {
	mapping := `{
		"mappings": {
			"properties": {
				"position": { "type": "integer" },
				"text_content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": ` + strconv.Itoa(dims) + `,
					"index": true,
					"similarity": "cosine"
				}
			}
		}
	}`

	res, err := ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithContext(ctx),
		ESClient.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功, 向量维度: %d", indexName, dims)
	return nil
}

// DeleteIndex 删除一个会话向量索引。索引不存在时视为成功。
func DeleteIndex(ctx context.Context, indexName string) error {
	res, err := ESClient.Indices.Delete(
		[]string{indexName},
		ESClient.Indices.Delete.WithContext(ctx),
		ESClient.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("删除索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
	}
	return nil
}

// IndexChunk 将单个分块文档索引到指定索引。
func IndexChunk(ctx context.Context, indexName string, doc ChunkDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: strconv.Itoa(doc.Position),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index document")
	}
	return nil
}

// KNNHit 代表一次 kNN 检索的单条命中。
type KNNHit struct {
	Position    int
	TextContent string
	Score       float64
}

// SearchKNN 在指定索引上执行 kNN 检索，按相似度降序返回前 k 条命中。
func SearchKNN(ctx context.Context, indexName string, vector []float32, k int) ([]KNNHit, error) {
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"size": k,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source ChunkDocument `json:"_source"`
				Score  float64       `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]KNNHit, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		hits = append(hits, KNNHit{
			Position:    hit.Source.Position,
			TextContent: hit.Source.TextContent,
			Score:       hit.Score,
		})
	}
	return hits, nil
}
