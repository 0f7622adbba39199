package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"chatbot/config"
	"chatbot/database"
	"chatbot/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AskRequest 一次问答请求
// ConversationID 可选：为空时在当前用户名下原子地查找或创建进行中的会话
type AskRequest struct {
	Query          string      `json:"query"`
	ConversationID string      `json:"conversation_id"`
	ChatHistory    [][2]string `json:"chat_history"`
}

// AskResult 一次问答的结果
// ChatHistory 为请求携带的历史追加本轮 (问题, 回答) 后的副本，仅在本轮请求内有效
type AskResult struct {
	Answer         *Answer
	ConversationID string
	ChatHistory    [][2]string
}

// ChatService 问答编排器
// 按固定顺序推进一轮问答：写入提问 -> 构建上下文 -> 检索 -> 生成 -> 写入回答。
// 任一外部调用失败即终止本次请求，不自动重试；提问记录在校验通过后无条件写入
type ChatService struct {
	retriever Retriever
	generator Generator
	windows   *ContextWindowBuilder

	systemPrompt      string
	retrievalTimeout  time.Duration
	generationTimeout time.Duration
}

// NewChatService 创建问答编排器
func NewChatService(cfg *config.Config, retriever Retriever, generator Generator) *ChatService {
	return &ChatService{
		retriever:         retriever,
		generator:         generator,
		windows:           NewContextWindowBuilder(cfg.Chat.ContextWindow),
		systemPrompt:      cfg.Chat.SystemPrompt,
		retrievalTimeout:  time.Duration(cfg.Pinecone.TimeoutSeconds) * time.Second,
		generationTimeout: time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
	}
}

// Ask 执行一轮问答
func (s *ChatService) Ask(ctx context.Context, userID uint, req *AskRequest) (*AskResult, error) {
	// 1. 校验：无问题内容直接失败，不写任何记录
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, &ValidationError{Message: "未提供问题内容"}
	}

	// 2. 定位会话并写入提问记录（审计轨迹，后续阶段失败也保留）
	conv, err := s.resolveConversation(userID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	question := models.UserQuestion{
		UserID:         userID,
		ConversationID: conv.ID,
		QuestionText:   query,
	}
	userMsg := models.Message{
		ConversationID: conv.ID,
		Content:        query,
		IsFromUser:     true,
	}
	if err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&question).Error; err != nil {
			return err
		}
		return tx.Create(&userMsg).Error
	}); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	// 3. 构建上下文窗口（排除本轮刚写入的消息）
	window, err := s.windows.Build(conv.ID, userMsg.ID)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	// 4. 检索（独立超时，失败不写回答记录）
	retrievalCtx, cancelRetrieval := context.WithTimeout(ctx, s.retrievalTimeout)
	defer cancelRetrieval()
	passages, err := s.retriever.Retrieve(retrievalCtx, query)
	if err != nil {
		return nil, asRetrievalError(err)
	}

	// 5. 生成（独立超时，失败不写回答记录）
	generationCtx, cancelGeneration := context.WithTimeout(ctx, s.generationTimeout)
	defer cancelGeneration()
	answer, err := s.generator.Generate(generationCtx, s.promptFor(conv), window, passages, query)
	if err != nil {
		return nil, asGenerationError(err)
	}

	// 6. 写入回答记录与助手消息，助手消息回指本轮的用户消息
	responseText, err := json.Marshal(answer)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	response := models.ChatbotResponse{
		UserID:         userID,
		ConversationID: conv.ID,
		ResponseText:   string(responseText),
	}
	assistantMsg := models.Message{
		ConversationID: conv.ID,
		Content:        answer.Text,
		IsFromUser:     false,
		InReplyToID:    &userMsg.ID,
	}
	if err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&response).Error; err != nil {
			return err
		}
		return tx.Create(&assistantMsg).Error
	}); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	// 7. 返回回答与追加了本轮问答的历史
	history := append(req.ChatHistory, [2]string{query, answer.Text})
	return &AskResult{
		Answer:         answer,
		ConversationID: conv.ID,
		ChatHistory:    history,
	}, nil
}

// resolveConversation 定位本轮问答的会话
// 显式传入 conversation_id 时必须属于当前用户；
// 未传入时在事务内带行锁查找最近的进行中会话，不存在则创建，
// 避免同一用户两个并发首问各自建出一个会话
func (s *ChatService) resolveConversation(userID uint, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation

	if conversationID != "" {
		err := database.DB.Where("id = ? AND user_id = ?", conversationID, userID).First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		if err != nil {
			return nil, &PersistenceError{Err: err}
		}
		return &conv, nil
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND status = ?", userID, models.ConversationStatusActive).
			Order("created_at DESC").
			First(&conv).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		conv = models.Conversation{
			UserID: userID,
			Title:  models.DefaultConversationTitle,
			Status: models.ConversationStatusActive,
		}
		return tx.Create(&conv).Error
	})
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return &conv, nil
}

// promptFor 会话级提示词覆盖优先于全局默认
func (s *ChatService) promptFor(conv *models.Conversation) string {
	if conv.Prompt != nil && strings.TrimSpace(*conv.Prompt) != "" {
		return *conv.Prompt
	}
	return s.systemPrompt
}

// asRetrievalError 确保检索阶段的失败携带阶段信息
func asRetrievalError(err error) error {
	var re *RetrievalError
	if errors.As(err, &re) {
		return err
	}
	return &RetrievalError{Err: err}
}

// asGenerationError 确保生成阶段的失败携带阶段信息
func asGenerationError(err error) error {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &GenerationError{Err: err}
}
