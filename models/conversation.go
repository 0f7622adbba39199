package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// ConversationStatusActive 进行中
	ConversationStatusActive = "active"
	// ConversationStatusArchived 已归档
	ConversationStatusArchived = "archived"
	// ConversationStatusEnded 已结束
	ConversationStatusEnded = "ended"
)

// DefaultConversationTitle 新会话的占位标题，首次读取标题时再从消息内容生成
const DefaultConversationTitle = "Empty"

// Conversation 会话
// status 与 archive 是两个独立维度：已归档的会话也可以是已结束状态
type Conversation struct {
	ID        string         `json:"id" gorm:"type:char(36);primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	Title     string         `json:"title" gorm:"size:255;not null;default:Empty"`
	Status    string         `json:"status" gorm:"size:10;not null;default:active"` // active/archived/ended
	Favourite bool           `json:"favourite" gorm:"not null;default:false"`
	Archive   bool           `json:"archive" gorm:"not null;default:false"`
	Prompt    *string        `json:"prompt" gorm:"type:text"` // 系统提示词覆盖，空则用全局默认
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate 创建前生成 UUID 主键
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
