package models

import (
	"time"
)

// EmailVerification 邮箱验证码记录
type EmailVerification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"size:100;index;not null"`
	Code      string    `json:"-" gorm:"size:10;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	Used      bool      `json:"used" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 设置表名
func (EmailVerification) TableName() string {
	return "email_verifications"
}

// Expired 验证码是否已过期
func (v *EmailVerification) Expired() bool {
	return time.Now().After(v.ExpiresAt)
}
