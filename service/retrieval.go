package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatbot/config"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"
)

// Passage 检索到的支撑段落
type Passage struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Retriever 相似度检索接口
// 返回空切片表示索引可达但无匹配结果，与检索失败（返回 error）严格区分
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Passage, error)
}

// Embedder 把查询文本转换为可比较的向量表示
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder 基于 OpenAI embeddings 接口的向量化实现
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder 创建向量化客户端
func NewOpenAIEmbedder(cfg *config.OpenAIConfig) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.EmbeddingModel(cfg.EmbeddingModel),
	}
}

// Embed 向量化查询文本
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: e.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("查询向量化失败: embeddings 响应为空")
	}
	return resp.Data[0].Embedding, nil
}

// pineconeQueryRequest Pinecone /query 请求体
type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

// pineconeQueryResponse Pinecone /query 响应体
type pineconeQueryResponse struct {
	Matches []struct {
		ID       string            `json:"id"`
		Score    float64           `json:"score"`
		Metadata map[string]string `json:"metadata"`
	} `json:"matches"`
}

// PineconeRetriever 基于 Pinecone 向量索引的检索客户端
// 索引地址与密钥来自注入的配置，进程启动时解析一次
type PineconeRetriever struct {
	http     *resty.Client
	embedder Embedder
	topK     int
}

// NewPineconeRetriever 创建检索客户端
func NewPineconeRetriever(cfg *config.PineconeConfig, embedder Embedder) *PineconeRetriever {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.IndexHost, "/")).
		SetHeader("Api-Key", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	return &PineconeRetriever{
		http:     httpClient,
		embedder: embedder,
		topK:     cfg.TopK,
	}
}

// Retrieve 相似度检索
// 失败分类：认证被拒 -> ErrIndexAuth；传输错误/服务端错误 -> ErrIndexUnavailable；
// 索引可达但无匹配 -> 空切片 + nil error
func (r *PineconeRetriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &RetrievalError{Err: fmt.Errorf("%w: %v", ErrIndexUnavailable, err)}
	}

	var result pineconeQueryResponse
	resp, err := r.http.R().
		SetContext(ctx).
		SetBody(pineconeQueryRequest{
			Vector:          vector,
			TopK:            r.topK,
			IncludeMetadata: true,
		}).
		SetResult(&result).
		Post("/query")
	if err != nil {
		return nil, &RetrievalError{Err: fmt.Errorf("%w: %v", ErrIndexUnavailable, err)}
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return nil, &RetrievalError{Err: ErrIndexAuth}
	}
	if resp.IsError() {
		return nil, &RetrievalError{Err: fmt.Errorf("%w: 状态码 %d", ErrIndexUnavailable, resp.StatusCode())}
	}

	passages := make([]Passage, 0, len(result.Matches))
	for _, m := range result.Matches {
		content := m.Metadata["text"]
		if content == "" {
			content = m.Metadata["content"]
		}
		if content == "" {
			continue
		}
		passages = append(passages, Passage{
			ID:      m.ID,
			Content: content,
			Score:   m.Score,
		})
	}
	return passages, nil
}
