package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat message roles
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Conversation is an AI chat thread owned by an employee
type Conversation struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	OrgID     uuid.UUID  `json:"org_id" db:"org_id"`
	OwnerID   uuid.UUID  `json:"owner_id" db:"owner_id"`
	ClientID  *uuid.UUID `json:"client_id,omitempty" db:"client_id"`
	Title     string     `json:"title" db:"title"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// ChatMessage is one turn of a conversation
type ChatMessage struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	Role           string    `json:"role" db:"role"`
	Content        string    `json:"content" db:"content"`
	Provider       string    `json:"provider,omitempty" db:"provider"`
	Model          string    `json:"model,omitempty" db:"model"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the ChatMessage model
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// NewChatMessage creates a chat message
func NewChatMessage(conversationID uuid.UUID, role, content string) *ChatMessage {
	return &ChatMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
}
