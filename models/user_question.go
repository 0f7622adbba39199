package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserQuestion 用户提问的持久化记录
// 在检索/生成之前写入，即使后续阶段失败也保留提问意图的审计轨迹
type UserQuestion struct {
	ID             string    `json:"id" gorm:"type:char(36);primaryKey"`
	UserID         uint      `json:"user_id" gorm:"index;not null"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);index;not null"`
	QuestionText   string    `json:"question_text" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"`

	User         User         `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName 设置表名
func (UserQuestion) TableName() string {
	return "user_questions"
}

// BeforeCreate 创建前生成 UUID 主键
func (q *UserQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
