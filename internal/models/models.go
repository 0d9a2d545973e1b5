// internal/models/models.go
package models

import (
	"time"
)

// Role records which side of the conversation produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one stored conversational event. Rows are append-only.
type Turn struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;index:idx_chat_history_partition,priority:1"`
	ChannelID int64     `gorm:"not null;index:idx_chat_history_partition,priority:2"`
	Role      Role      `gorm:"size:16;not null"`
	Text      string    `gorm:"column:message;type:text;not null"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_chat_history_partition,priority:3"`
}

func (Turn) TableName() string {
	return "chat_history"
}
