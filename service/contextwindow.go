package service

import (
	"chatbot/database"
	"chatbot/models"
)

const (
	// RoleUser 上下文窗口中的用户角色
	RoleUser = "user"
	// RoleAssistant 上下文窗口中的助手角色
	RoleAssistant = "assistant"
)

// ChatTurn 上下文窗口中的一条历史消息
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContextWindowBuilder 上下文窗口构建器
// 取会话内最近 size 条历史消息，按时间升序返回，作为生成阶段的对话记忆
type ContextWindowBuilder struct {
	size int
}

// NewContextWindowBuilder 创建上下文窗口构建器
func NewContextWindowBuilder(size int) *ContextWindowBuilder {
	if size <= 0 {
		size = 10
	}
	return &ContextWindowBuilder{size: size}
}

// Build 构建上下文窗口
// excludeMessageID 为正在回答的这条消息，窗口中必须排除；传 0 表示不排除
// 空会话返回空切片而非错误
func (b *ContextWindowBuilder) Build(conversationID string, excludeMessageID uint) ([]ChatTurn, error) {
	var messages []models.Message
	if err := database.DB.
		Where("conversation_id = ? AND id <> ?", conversationID, excludeMessageID).
		Order("created_at DESC, id DESC").
		Limit(b.size).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	// 查询按时间倒序取最近 size 条，这里反转为升序（最旧在前）
	window := make([]ChatTurn, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		role := RoleAssistant
		if msg.IsFromUser {
			role = RoleUser
		}
		window = append(window, ChatTurn{Role: role, Content: msg.Content})
	}
	return window, nil
}
