package model

import "time"

type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsUser         bool      `gorm:"not null" json:"is_user"`
	CreatedAt      time.Time `json:"created_at"`
}
