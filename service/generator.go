package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chatbot/config"

	"github.com/sashabaranov/go-openai"
)

// Answer 生成结果：回答文本 + 来源段落ID
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// Generator 回答生成接口
// 历史窗口只在单次请求内有效，生成器不持有任何跨请求状态
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, history []ChatTurn, passages []Passage, query string) (*Answer, error)
}

// OpenAIGenerator 基于 chat/completions 接口的回答生成器
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIGenerator 创建回答生成器
// 温度来自配置，知识库问答场景默认 0.0（低随机性）
func NewOpenAIGenerator(cfg *config.OpenAIConfig) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
	}
}

// Generate 组装单次生成请求并调用模型 API
// 请求结构：系统指令（含检索到的参考资料）+ 对话历史 + 当前问题
func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt string, history []ChatTurn, passages []Passage, query string) (*Answer, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: buildSystemContent(systemPrompt, passages),
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleAssistant
		if turn.Role == RoleUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: query,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, &GenerationError{Err: classifyLLMError(err)}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, &GenerationError{Err: ErrLLMMalformed}
	}

	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, p.ID)
	}
	return &Answer{
		Text:    strings.TrimSpace(resp.Choices[0].Message.Content),
		Sources: sources,
	}, nil
}

// buildSystemContent 把检索到的参考资料拼入系统指令
func buildSystemContent(systemPrompt string, passages []Passage) string {
	if len(passages) == 0 {
		return systemPrompt
	}
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\n参考资料：\n")
	for i, p := range passages {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, p.Content))
	}
	return sb.String()
}

// classifyLLMError 区分认证/配额/超时/其他失败原因
func classifyLLMError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrLLMTimeout
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrLLMAuth
		case http.StatusTooManyRequests:
			return ErrLLMQuota
		}
	}
	return err
}
