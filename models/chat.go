package models

import "time"

// Rollen einer ChatMessage.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession ist eine Unterhaltung eines Nutzers über genau ein Paper.
type ChatSession struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID  uint   `json:"userId" gorm:"index;not null"`
	PaperID string `json:"paperId" gorm:"size:128;not null"`
	Title   string `json:"title"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

// ChatMessage ist ein einzelner Beitrag; die kanonische Reihenfolge ist CreatedAt, dann ID.
type ChatMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`

	SessionID uint   `json:"sessionId" gorm:"index;not null"`
	Role      string `json:"role" gorm:"size:16;not null"`
	Content   string `json:"content" gorm:"type:text;not null"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
