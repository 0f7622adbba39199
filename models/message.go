package models

import (
	"time"
)

// Message 会话内的单条消息
// 同一会话内按 created_at（相同时再按 id）全序排列；
// 编排器写入的助手消息，其 in_reply_to_id 指向生成时该会话最新的用户消息
type Message struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);index;not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	IsFromUser     bool      `json:"is_from_user" gorm:"not null;default:true"`
	InReplyToID    *uint     `json:"in_reply_to_id"` // 被回复消息删除时置 NULL，不级联删除
	CreatedAt      time.Time `json:"created_at"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	InReplyTo    *Message     `json:"-" gorm:"foreignKey:InReplyToID;constraint:OnDelete:SET NULL"`
}

// TableName 设置表名
func (Message) TableName() string {
	return "messages"
}
