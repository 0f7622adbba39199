package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatbotResponse 机器人回答记录，仅在生成成功后写入
type ChatbotResponse struct {
	ID             string    `json:"id" gorm:"type:char(36);primaryKey"`
	UserID         uint      `json:"user_id" gorm:"index;not null"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);index;not null"`
	ResponseText   string    `json:"response_text" gorm:"type:longtext;not null"`
	CreatedAt      time.Time `json:"created_at"`

	User         User         `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName 设置表名
func (ChatbotResponse) TableName() string {
	return "chatbot_responses"
}

// BeforeCreate 创建前生成 UUID 主键
func (r *ChatbotResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
